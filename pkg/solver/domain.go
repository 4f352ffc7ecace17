package solver

import (
	"sort"
	"strconv"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

// EncodingKind distinguishes the two ways a domain is lowered into SAT
// variables. Bool domains get one variable; enum and bounded-int domains
// are both enumerated and one-hot encoded over their concrete values —
// bounded-int ranges seen in practice are small enough that a log-sized
// bit-vector buys nothing but complexity.
type EncodingKind string

const (
	EncodingBool   EncodingKind = "bool"
	EncodingOneHot EncodingKind = "one_hot"
)

// Encoding is the SAT-variable shape assigned to one domain.
type Encoding struct {
	Kind EncodingKind

	// BoolVar is used when Kind == EncodingBool.
	BoolVar int

	// Variants maps a value's canonical key (see valueKey) to the variable
	// asserting the domain equals that value. Used when Kind == EncodingOneHot.
	Variants map[string]int
}

// EncodedDomain pairs a domain declaration with the variables it was lowered
// into.
type EncodedDomain struct {
	Domain   ir.Domain
	Encoding Encoding
}

// EncodedInputSpace is the SAT-variable encoding of every domain in an
// input space, plus the structural clauses (exactly-one per enum/int
// domain) that make the encoding sound.
type EncodedInputSpace struct {
	Domains           map[string]EncodedDomain
	StructuralClauses CNF
	NextVar           int
}

// EncodeInputSpace allocates SAT variables for every domain and emits the
// structural clauses that constrain a one-hot domain to exactly one value.
// Domain names are visited in sorted order so the same input space always
// produces the same variable numbering, which is what makes a campaign's
// seeded generation reproducible.
func EncodeInputSpace(space ir.InputSpace) (*EncodedInputSpace, error) {
	names := make([]string, 0, len(space.Domains))
	for name := range space.Domains {
		names = append(names, name)
	}
	sort.Strings(names)

	enc := &EncodedInputSpace{Domains: make(map[string]EncodedDomain, len(names))}
	nextVar := 1

	for _, name := range names {
		dom := space.Domains[name]
		switch dom.Type {
		case ir.DomainBool:
			v := nextVar
			nextVar++
			enc.Domains[name] = EncodedDomain{Domain: dom, Encoding: Encoding{Kind: EncodingBool, BoolVar: v}}

		case ir.DomainEnum:
			if len(dom.Values) == 0 {
				return nil, errEmptyDomain(name)
			}
			variants := make(map[string]int, len(dom.Values))
			vars := make([]int, 0, len(dom.Values))
			for _, val := range dom.Values {
				v := nextVar
				nextVar++
				variants[val] = v
				vars = append(vars, v)
			}
			enc.Domains[name] = EncodedDomain{Domain: dom, Encoding: Encoding{Kind: EncodingOneHot, Variants: variants}}
			enc.StructuralClauses = append(enc.StructuralClauses, exactlyOne(vars)...)

		case ir.DomainInt:
			if dom.Max < dom.Min {
				return nil, errEmptyDomain(name)
			}
			variants := make(map[string]int)
			vars := make([]int, 0, dom.Max-dom.Min+1)
			for i := dom.Min; i <= dom.Max; i++ {
				v := nextVar
				nextVar++
				variants[strconv.FormatInt(i, 10)] = v
				vars = append(vars, v)
			}
			enc.Domains[name] = EncodedDomain{Domain: dom, Encoding: Encoding{Kind: EncodingOneHot, Variants: variants}}
			enc.StructuralClauses = append(enc.StructuralClauses, exactlyOne(vars)...)

		default:
			return nil, errUnknownDomainType(name, string(dom.Type))
		}
	}

	enc.NextVar = nextVar
	return enc, nil
}

// exactlyOne emits the at-least-one clause plus every pairwise at-most-one
// clause for a set of one-hot variables.
func exactlyOne(vars []int) CNF {
	var clauses CNF

	atLeast := make(Clause, len(vars))
	for i, v := range vars {
		atLeast[i] = Lit(v)
	}
	clauses = append(clauses, atLeast)

	for i := 0; i < len(vars); i++ {
		for j := i + 1; j < len(vars); j++ {
			clauses = append(clauses, Clause{Lit(-vars[i]), Lit(-vars[j])})
		}
	}
	return clauses
}

// AllDomainVars returns every SAT variable belonging to some domain's
// encoding, used to build a blocking clause that only mentions
// domain-relevant variables (never a Tseitin auxiliary).
func AllDomainVars(enc *EncodedInputSpace) []int {
	var vars []int
	for _, d := range enc.Domains {
		switch d.Encoding.Kind {
		case EncodingBool:
			vars = append(vars, d.Encoding.BoolVar)
		case EncodingOneHot:
			for _, v := range d.Encoding.Variants {
				vars = append(vars, v)
			}
		}
	}
	return vars
}

// LitForValue returns the literal asserting that domain equals value, if the
// domain's encoding has one.
func LitForValue(domain EncodedDomain, value typecheck.Value) (Lit, bool) {
	switch domain.Encoding.Kind {
	case EncodingBool:
		if value.Kind != typecheck.ValueBool {
			return 0, false
		}
		if value.B {
			return Lit(domain.Encoding.BoolVar), true
		}
		return Lit(-domain.Encoding.BoolVar), true
	case EncodingOneHot:
		v, ok := domain.Encoding.Variants[valueKey(value)]
		if !ok {
			return 0, false
		}
		return Lit(v), true
	default:
		return 0, false
	}
}

func valueKey(v typecheck.Value) string {
	switch v.Kind {
	case typecheck.ValueBool:
		if v.B {
			return "true"
		}
		return "false"
	case typecheck.ValueInt:
		return strconv.FormatInt(v.I, 10)
	default:
		return v.S
	}
}

// DecodeModel reads a satisfying SAT assignment back into a value per
// domain.
func DecodeModel(enc *EncodedInputSpace, model map[int]bool) map[string]typecheck.Value {
	out := make(map[string]typecheck.Value, len(enc.Domains))
	for name, d := range enc.Domains {
		switch d.Encoding.Kind {
		case EncodingBool:
			out[name] = typecheck.BoolValue(model[d.Encoding.BoolVar])
		case EncodingOneHot:
			for key, v := range d.Encoding.Variants {
				if model[v] {
					out[name] = decodeKey(d.Domain, key)
					break
				}
			}
		}
	}
	return out
}

func decodeKey(dom ir.Domain, key string) typecheck.Value {
	if dom.Type == ir.DomainInt {
		i, _ := strconv.ParseInt(key, 10, 64)
		return typecheck.IntValue(i)
	}
	return typecheck.StringValue(key)
}
