package solver

import (
	"sort"
	"strings"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

// TestVector is a concrete assignment of values to every domain variable in
// an input space.
type TestVector struct {
	Assignments map[string]typecheck.Value
}

// Key returns a deterministic string identifying this assignment, used to
// deduplicate vectors without requiring map values to be comparable.
func (tv TestVector) Key() string {
	names := make([]string, 0, len(tv.Assignments))
	for k := range tv.Assignments {
		names = append(names, k)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, k := range names {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(valueKey(tv.Assignments[k]))
		sb.WriteByte(';')
	}
	return sb.String()
}

// SatResult is the outcome of a single satisfiability search.
type SatResult struct {
	Sat    bool
	Vector TestVector
}

func initSolver(enc *EncodedInputSpace, constraintClauses, extra CNF) *Solver {
	s := NewSolver(enc.NextVar - 1)
	for _, c := range enc.StructuralClauses {
		s.AddClause(c)
	}
	for _, c := range constraintClauses {
		s.AddClause(c)
	}
	for _, c := range extra {
		s.AddClause(c)
	}
	return s
}

// FindOne searches for a single satisfying assignment.
func FindOne(enc *EncodedInputSpace, constraintClauses, extra CNF) (*SatResult, error) {
	s := initSolver(enc, constraintClauses, extra)
	sat, model := s.Solve()
	if !sat {
		return &SatResult{Sat: false}, nil
	}
	return &SatResult{Sat: true, Vector: TestVector{Assignments: DecodeModel(enc, model)}}, nil
}

// FindMany searches for unique satisfying assignments, blocking each one
// found so the next search returns a different vector, until either
// maxVectors are found (0 means find all) or the solver reports UNSAT.
func FindMany(enc *EncodedInputSpace, constraintClauses, extra CNF, maxVectors int) ([]TestVector, error) {
	s := initSolver(enc, constraintClauses, extra)

	var vectors []TestVector
	seen := make(map[string]struct{})

	for {
		if maxVectors > 0 && len(vectors) >= maxVectors {
			break
		}

		sat, model := s.Solve()
		if !sat {
			break
		}

		tv := TestVector{Assignments: DecodeModel(enc, model)}
		if key := tv.Key(); ifAbsent(seen, key) {
			vectors = append(vectors, tv)
		}

		blocking := domainBlockingClause(enc, model)
		if len(blocking) == 0 {
			break
		}
		s.AddClause(blocking)
	}

	return vectors, nil
}

func ifAbsent(seen map[string]struct{}, key string) bool {
	if _, ok := seen[key]; ok {
		return false
	}
	seen[key] = struct{}{}
	return true
}

// domainBlockingClause negates the model's assignment restricted to
// domain-relevant variables, so re-solving cannot return the same vector.
func domainBlockingClause(enc *EncodedInputSpace, model map[int]bool) Clause {
	vars := AllDomainVars(enc)
	clause := make(Clause, 0, len(vars))
	for _, v := range vars {
		if model[v] {
			clause = append(clause, Lit(-v))
		} else {
			clause = append(clause, Lit(v))
		}
	}
	return clause
}

// IsSat reports whether the given encoding plus constraints has any
// solution at all.
func IsSat(enc *EncodedInputSpace, constraintClauses, extra CNF) (bool, error) {
	res, err := FindOne(enc, constraintClauses, extra)
	if err != nil {
		return false, err
	}
	return res.Sat, nil
}

// SolveInputSpace encodes an input space and returns up to maxVectors
// (0 = all) unique satisfying vectors.
func SolveInputSpace(space ir.InputSpace, maxVectors int) ([]TestVector, error) {
	enc, err := EncodeInputSpace(space)
	if err != nil {
		return nil, err
	}
	constraintClauses, err := EncodeConstraints(space.Constraints, enc)
	if err != nil {
		return nil, err
	}
	return FindMany(enc, constraintClauses, nil, maxVectors)
}
