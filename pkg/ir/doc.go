// Package ir defines the in-memory representation of a compiled
// specification document: entity types, refinements, derived/observer
// functions, protocols, effects, properties, generators, exploration
// configuration, the input space, and guest bindings. Decoding from the
// wire JSON format happens here; structural schema validation and semantic
// checking happen in pkg/compiler and pkg/typecheck respectively.
package ir
