// Package store provides the durable cross-campaign memory layer: one
// logical store keyed by compiled-spec content hash, holding the decayed
// weight table, unreachability proofs, hot regions, and replay capsules a
// campaign leaves behind for the next run against the same spec. Backed by
// an embedded SQLite database with versioned migrations, so the on-disk
// format can evolve without a flag day.
package store
