// Package solver turns an input space declaration into concrete argument
// vectors. It encodes bool/enum/bounded-int domains and cross-parameter
// constraints into CNF, searches for satisfying assignments with a small
// DPLL solver, and drives coverage-directed generation (all-pairs, boundary,
// each-transition delegates to the traversal engine). It also caches
// discovered UNSAT proofs and generated vectors for reuse across a
// campaign's lifetime.
package solver
