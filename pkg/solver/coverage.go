package solver

import (
	"encoding/json"
	"fmt"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

// CoveragePointKind distinguishes the two point shapes this package
// generates directly. Each-transition points are a traversal-engine concern
// (they name a state machine transition, not a domain value) and never
// appear here.
type CoveragePointKind string

const (
	CoveragePair     CoveragePointKind = "pair"
	CoverageBoundary CoveragePointKind = "boundary"
)

// CoveragePoint is a specific combination of domain values that a campaign
// wants some generated vector to exercise.
type CoveragePoint struct {
	Kind CoveragePointKind

	Var1, Var2 string
	Val1, Val2 typecheck.Value

	Var   string
	Value typecheck.Value
}

// Key returns a string uniquely identifying this point, used as a map key
// in place of Rust's derived Hash/Eq.
func (p CoveragePoint) Key() string {
	if p.Kind == CoveragePair {
		return fmt.Sprintf("pair:%s=%s;%s=%s", p.Var1, valueKey(p.Val1), p.Var2, valueKey(p.Val2))
	}
	return fmt.Sprintf("boundary:%s=%s", p.Var, valueKey(p.Value))
}

func valuesEqual(a, b typecheck.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case typecheck.ValueBool:
		return a.B == b.B
	case typecheck.ValueInt:
		return a.I == b.I
	default:
		return a.S == b.S
	}
}

func domainValues(space ir.InputSpace, varName string) []typecheck.Value {
	dom, ok := space.Domains[varName]
	if !ok {
		return nil
	}
	switch dom.Type {
	case ir.DomainBool:
		return []typecheck.Value{typecheck.BoolValue(false), typecheck.BoolValue(true)}
	case ir.DomainEnum:
		vals := make([]typecheck.Value, len(dom.Values))
		for i, v := range dom.Values {
			vals[i] = typecheck.StringValue(v)
		}
		return vals
	case ir.DomainInt:
		vals := make([]typecheck.Value, 0, dom.Max-dom.Min+1)
		for i := dom.Min; i <= dom.Max; i++ {
			vals = append(vals, typecheck.IntValue(i))
		}
		return vals
	default:
		return nil
	}
}

// AllPairsTargets generates one coverage point for every pair of values
// across every pair of the named variables.
func AllPairsTargets(space ir.InputSpace, variables []string) []CoveragePoint {
	var targets []CoveragePoint
	for i := 0; i < len(variables); i++ {
		for j := i + 1; j < len(variables); j++ {
			v1, v2 := variables[i], variables[j]
			for _, a := range domainValues(space, v1) {
				for _, b := range domainValues(space, v2) {
					targets = append(targets, CoveragePoint{Kind: CoveragePair, Var1: v1, Val1: a, Var2: v2, Val2: b})
				}
			}
		}
	}
	return targets
}

// BoundaryTargets generates boundary-value coverage points for a domain:
// the caller's explicit values plus, for a bounded-int domain, its min, max,
// and their inner neighbors.
func BoundaryTargets(space ir.InputSpace, domainName string, explicit []json.RawMessage) []CoveragePoint {
	var targets []CoveragePoint
	seen := make(map[string]struct{})

	add := func(v typecheck.Value) {
		p := CoveragePoint{Kind: CoverageBoundary, Var: domainName, Value: v}
		if _, ok := seen[p.Key()]; ok {
			return
		}
		seen[p.Key()] = struct{}{}
		targets = append(targets, p)
	}

	for _, raw := range explicit {
		var i int64
		if err := json.Unmarshal(raw, &i); err == nil {
			add(typecheck.IntValue(i))
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			add(typecheck.StringValue(s))
			continue
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			add(typecheck.BoolValue(b))
		}
	}

	if dom, ok := space.Domains[domainName]; ok && dom.Type == ir.DomainInt {
		auto := []int64{dom.Min, dom.Max}
		if dom.Max-dom.Min > 1 {
			auto = append(auto, dom.Min+1, dom.Max-1)
		}
		for _, v := range auto {
			add(typecheck.IntValue(v))
		}
	}

	return targets
}

// ExtractTargets reads every coverage target declared on an input space and
// expands it into concrete points. Each-transition targets are skipped —
// they belong to the traversal engine's transition table, not a domain.
func ExtractTargets(space ir.InputSpace) []CoveragePoint {
	var targets []CoveragePoint
	for _, t := range space.Coverage.Targets {
		switch t.Type {
		case ir.CoverageAllPairs:
			targets = append(targets, AllPairsTargets(space, t.Over)...)
		case ir.CoverageBoundary:
			targets = append(targets, BoundaryTargets(space, t.Domain, t.Values)...)
		case ir.CoverageEachTransition:
			continue
		}
	}
	return targets
}

// CheckCoverage reports which of targets some vector in vectors satisfies.
func CheckCoverage(vectors []TestVector, targets []CoveragePoint) map[string]CoveragePoint {
	covered := make(map[string]CoveragePoint)
	for _, t := range targets {
		if t.Kind == CoveragePair {
			for _, v := range vectors {
				a, ok1 := v.Assignments[t.Var1]
				b, ok2 := v.Assignments[t.Var2]
				if ok1 && ok2 && valuesEqual(a, t.Val1) && valuesEqual(b, t.Val2) {
					covered[t.Key()] = t
					break
				}
			}
			continue
		}
		for _, v := range vectors {
			a, ok := v.Assignments[t.Var]
			if ok && valuesEqual(a, t.Value) {
				covered[t.Key()] = t
				break
			}
		}
	}
	return covered
}

func pointToClauses(point CoveragePoint, enc *EncodedInputSpace) (CNF, error) {
	if point.Kind == CoveragePair {
		d1, ok := enc.Domains[point.Var1]
		if !ok {
			return nil, errUnknownCoverageDomain(point.Var1)
		}
		d2, ok := enc.Domains[point.Var2]
		if !ok {
			return nil, errUnknownCoverageDomain(point.Var2)
		}
		l1, ok := LitForValue(d1, point.Val1)
		if !ok {
			return nil, errNoLiteralForValue(point.Var1)
		}
		l2, ok := LitForValue(d2, point.Val2)
		if !ok {
			return nil, errNoLiteralForValue(point.Var2)
		}
		return CNF{Clause{l1}, Clause{l2}}, nil
	}

	d, ok := enc.Domains[point.Var]
	if !ok {
		return nil, errUnknownCoverageDomain(point.Var)
	}
	l, ok := LitForValue(d, point.Value)
	if !ok {
		return nil, errNoLiteralForValue(point.Var)
	}
	return CNF{Clause{l}}, nil
}

// GenerateForTargets produces one vector per uncovered point, each forced to
// satisfy that point via an extra unit clause on top of the domain and
// constraint clauses.
func GenerateForTargets(enc *EncodedInputSpace, constraintClauses CNF, uncovered []CoveragePoint) ([]TestVector, error) {
	var result []TestVector
	for _, point := range uncovered {
		extra, err := pointToClauses(point, enc)
		if err != nil {
			return nil, err
		}
		found, err := FindMany(enc, constraintClauses, extra, 1)
		if err != nil {
			return nil, err
		}
		result = append(result, found...)
	}
	return result, nil
}

// CoverageResult is the outcome of a coverage-driven generation pass.
type CoverageResult struct {
	Vectors      []TestVector
	Covered      map[string]CoveragePoint
	Uncoverable  map[string]CoveragePoint
	TotalTargets int
}

// CoverageDrivenGeneration extracts coverage targets from an input space and
// generates a vector for each, tracking which targets turn out to be
// unreachable once constraints are taken into account.
func CoverageDrivenGeneration(space ir.InputSpace) (*CoverageResult, error) {
	enc, err := EncodeInputSpace(space)
	if err != nil {
		return nil, err
	}
	constraintClauses, err := EncodeConstraints(space.Constraints, enc)
	if err != nil {
		return nil, err
	}
	targets := ExtractTargets(space)

	if len(targets) == 0 {
		vectors, err := FindMany(enc, constraintClauses, nil, 0)
		if err != nil {
			return nil, err
		}
		return &CoverageResult{Vectors: vectors, Covered: map[string]CoveragePoint{}, Uncoverable: map[string]CoveragePoint{}}, nil
	}

	var vectors []TestVector
	uncoverable := make(map[string]CoveragePoint)
	seen := make(map[string]struct{})

	for _, t := range targets {
		extra, err := pointToClauses(t, enc)
		if err != nil {
			return nil, err
		}
		found, err := FindMany(enc, constraintClauses, extra, 1)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			uncoverable[t.Key()] = t
			continue
		}
		for _, v := range found {
			if ifAbsent(seen, v.Key()) {
				vectors = append(vectors, v)
			}
		}
	}

	return &CoverageResult{
		Vectors:      vectors,
		Covered:      CheckCoverage(vectors, targets),
		Uncoverable:  uncoverable,
		TotalTargets: len(targets),
	}, nil
}
