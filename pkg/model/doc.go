// Package model implements the model kernel (C3): a copy-on-write abstract
// state over entity-type tables, effect application (creates/sets/frame
// resolution), invariant and temporal property checking, and deterministic
// abstract-state-identity hashing used to key the traversal engine's
// state-conditioned weight table.
package model
