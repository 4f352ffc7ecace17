package solver

// Lit is a CNF literal: a positive value names a variable asserted true, its
// negation names the same variable asserted false. Variable numbering starts
// at 1; 0 is never a valid literal.
type Lit int

// Var returns the variable a literal refers to, stripping its sign.
func (l Lit) Var() int {
	if l < 0 {
		return int(-l)
	}
	return int(l)
}

// Sign reports whether the literal asserts its variable true.
func (l Lit) Sign() bool { return l > 0 }

// Negate returns the literal's complement.
func (l Lit) Negate() Lit { return -l }

// Clause is a disjunction of literals.
type Clause []Lit

// CNF is a conjunction of clauses.
type CNF []Clause
