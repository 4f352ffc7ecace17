package solver

import (
	"sort"
	"strings"

	"github.com/ajhcs/beacon/pkg/ir"
)

// FractureResult is the outcome of solving an input space whose full set of
// constraints may have no combined solution.
type FractureResult struct {
	// Vectors are satisfying assignments found across every constraint
	// group that turned out to be solvable, combined or on its own.
	Vectors []TestVector

	// Aborted names the constraints that are unsatisfiable even alone
	// against the bare domains — fracturing them further cannot help.
	Aborted []string
}

// Fracture tries to solve an input space with every declared constraint
// applied together. If the combined set is UNSAT, it splits the constraint
// list in half and solves each half independently, recursing until either a
// half is satisfiable or a single constraint remains — a constraint that is
// unsatisfiable in isolation is permanently unsatisfiable, so it is reported
// as aborted rather than retried forever.
func Fracture(space ir.InputSpace, cache *Cache) (*FractureResult, error) {
	enc, err := EncodeInputSpace(space)
	if err != nil {
		return nil, err
	}
	return fractureConstraints(enc, space.Constraints, cache)
}

func fractureConstraints(enc *EncodedInputSpace, constraints []ir.InputConstraint, cache *Cache) (*FractureResult, error) {
	key := fractureKey(constraints)

	if cache != nil {
		if unsat, err := cache.IsUnsat(key); err == nil && unsat {
			return splitOrAbort(enc, constraints, cache)
		}
	}

	clauses, err := EncodeConstraints(constraints, enc)
	if err != nil {
		return nil, err
	}

	result, err := FindOne(enc, clauses, nil)
	if err != nil {
		return nil, err
	}
	if result.Sat {
		vectors, err := FindMany(enc, clauses, nil, 0)
		if err != nil {
			return nil, err
		}
		return &FractureResult{Vectors: vectors}, nil
	}

	if cache != nil {
		_ = cache.MarkUnsat(key)
	}
	return splitOrAbort(enc, constraints, cache)
}

func splitOrAbort(enc *EncodedInputSpace, constraints []ir.InputConstraint, cache *Cache) (*FractureResult, error) {
	if len(constraints) <= 1 {
		return &FractureResult{Aborted: namesOf(constraints)}, nil
	}

	mid := len(constraints) / 2
	left, err := fractureConstraints(enc, constraints[:mid], cache)
	if err != nil {
		return nil, err
	}
	right, err := fractureConstraints(enc, constraints[mid:], cache)
	if err != nil {
		return nil, err
	}

	return &FractureResult{
		Vectors: append(left.Vectors, right.Vectors...),
		Aborted: append(left.Aborted, right.Aborted...),
	}, nil
}

func namesOf(constraints []ir.InputConstraint) []string {
	names := make([]string, len(constraints))
	for i, c := range constraints {
		names[i] = c.Name
	}
	return names
}

func fractureKey(constraints []ir.InputConstraint) string {
	names := namesOf(constraints)
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Pipeline runs the full generation sequence for one input space: fracture
// the constraint set into satisfiable groups, then top up coverage-directed
// vectors for any declared coverage target that fracture's vectors didn't
// already hit.
func Pipeline(space ir.InputSpace, cache *Cache) (*FractureResult, *CoverageResult, error) {
	fractured, err := Fracture(space, cache)
	if err != nil {
		return nil, nil, err
	}

	targets := ExtractTargets(space)
	if len(targets) == 0 {
		return fractured, &CoverageResult{Vectors: fractured.Vectors}, nil
	}

	covered := CheckCoverage(fractured.Vectors, targets)
	var uncoveredTargets []CoveragePoint
	for _, t := range targets {
		if _, ok := covered[t.Key()]; !ok {
			uncoveredTargets = append(uncoveredTargets, t)
		}
	}

	enc, err := EncodeInputSpace(space)
	if err != nil {
		return nil, nil, err
	}
	constraintClauses, err := EncodeConstraints(space.Constraints, enc)
	if err != nil {
		return nil, nil, err
	}

	uncoverable := make(map[string]CoveragePoint)
	var topUp []TestVector
	for _, t := range uncoveredTargets {
		extra, err := pointToClauses(t, enc)
		if err != nil {
			return nil, nil, err
		}
		found, err := FindMany(enc, constraintClauses, extra, 1)
		if err != nil {
			return nil, nil, err
		}
		if len(found) == 0 {
			uncoverable[t.Key()] = t
			continue
		}
		topUp = append(topUp, found...)
	}

	allVectors := append(append([]TestVector{}, fractured.Vectors...), topUp...)

	return fractured, &CoverageResult{
		Vectors:      allVectors,
		Covered:      CheckCoverage(allVectors, targets),
		Uncoverable:  uncoverable,
		TotalTargets: len(targets),
	}, nil
}
