package solver

// Solver is a small DPLL SAT solver over CNF clauses. No SAT-solving library
// exists anywhere in the reference corpus (the domain this was ported from
// leans on a Rust CDCL crate that has no Go counterpart in the pack), so this
// is hand-rolled: unit propagation plus first-unassigned-variable branching.
// Domains here are small (bools, enum one-hots, bounded-int one-hots), so a
// non-CDCL solver is more than fast enough.
type Solver struct {
	numVars int
	clauses []Clause
}

// NewSolver creates a solver over numVars variables (numbered 1..numVars)
// with no clauses yet.
func NewSolver(numVars int) *Solver {
	return &Solver{numVars: numVars}
}

// AddClause appends a clause to the solver's working set. Clauses accumulate
// across calls; there is no way to retract one.
func (s *Solver) AddClause(c Clause) {
	cp := make(Clause, len(c))
	copy(cp, c)
	s.clauses = append(s.clauses, cp)
}

// assignment tracks a partial truth assignment: 0 unassigned, 1 true, -1 false.
type assignment []int8

func (a assignment) value(l Lit) int8 {
	v := a[l.Var()]
	if v == 0 {
		return 0
	}
	if l.Sign() {
		return v
	}
	return -v
}

// Solve searches for a satisfying assignment, returning it as var -> bool
// (only for variables mentioned in some clause need not be complete; every
// variable 1..numVars is assigned in the returned model on success).
func (s *Solver) Solve() (bool, map[int]bool) {
	a := make(assignment, s.numVars+1)
	if !s.search(a) {
		return false, nil
	}
	model := make(map[int]bool, s.numVars)
	for v := 1; v <= s.numVars; v++ {
		model[v] = a[v] == 1
	}
	return true, model
}

func (s *Solver) search(a assignment) bool {
	a, ok := propagateUnits(s.clauses, a)
	if !ok {
		return false
	}

	unassigned := -1
	for v := 1; v <= s.numVars; v++ {
		if a[v] == 0 {
			unassigned = v
			break
		}
	}
	if unassigned == -1 {
		return satisfied(s.clauses, a)
	}

	for _, trial := range [2]int8{1, -1} {
		next := make(assignment, len(a))
		copy(next, a)
		next[unassigned] = trial
		if s.search(next) {
			copy(a, next)
			return true
		}
	}
	return false
}

// propagateUnits repeatedly assigns forced literals from unit clauses until
// a fixpoint or a conflict is reached.
func propagateUnits(clauses []Clause, a assignment) (assignment, bool) {
	a = append(assignment(nil), a...)
	changed := true
	for changed {
		changed = false
		for _, c := range clauses {
			unassignedLit := Lit(0)
			unassignedCount := 0
			clauseSatisfied := false
			for _, l := range c {
				switch a.value(l) {
				case 1:
					clauseSatisfied = true
				case 0:
					unassignedCount++
					unassignedLit = l
				}
			}
			if clauseSatisfied {
				continue
			}
			if unassignedCount == 0 {
				return a, false // conflict: every literal false
			}
			if unassignedCount == 1 {
				v := unassignedLit.Var()
				if unassignedLit.Sign() {
					a[v] = 1
				} else {
					a[v] = -1
				}
				changed = true
			}
		}
	}
	return a, true
}

func satisfied(clauses []Clause, a assignment) bool {
	for _, c := range clauses {
		ok := false
		for _, l := range c {
			if a.value(l) == 1 {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
