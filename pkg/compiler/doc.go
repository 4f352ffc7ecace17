// Package compiler implements the specification compiler (C2): CUE-based
// structural schema validation of the ten-section JSON spec document,
// type/arity checking of every predicate and guard (delegated to
// pkg/typecheck), lowering of protocol trees into the NDA exploration
// graph, and the deterministic content hash used to key persisted
// per-spec state.
package compiler
