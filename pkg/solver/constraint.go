package solver

import (
	"fmt"
	"strconv"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

// EncodeConstraints Tseitin-encodes each input constraint's rule into CNF
// and asserts it as a unit clause over a fresh top-level literal. Auxiliary
// variables are allocated starting from enc.NextVar, which this call
// advances — callers that encode constraints more than once against the
// same EncodedInputSpace get disjoint variable ranges for free.
func EncodeConstraints(constraints []ir.InputConstraint, enc *EncodedInputSpace) (CNF, error) {
	ce := &constraintEncoder{enc: enc}
	for _, c := range constraints {
		lit, err := ce.encode(c.Rule)
		if err != nil {
			return nil, fmt.Errorf("constraint %q: %w", c.Name, err)
		}
		ce.clauses = append(ce.clauses, Clause{lit})
	}
	return ce.clauses, nil
}

type constraintEncoder struct {
	enc     *EncodedInputSpace
	clauses CNF
}

func (ce *constraintEncoder) freshVar() int {
	v := ce.enc.NextVar
	ce.enc.NextVar++
	return v
}

// encode lowers one predicate node to a literal that is true exactly when
// the predicate holds, introducing Tseitin auxiliary variables for boolean
// connectives.
func (ce *constraintEncoder) encode(e ir.Expr) (Lit, error) {
	if e.Kind != ir.ExprOp {
		return 0, errUnsupportedExpr(string(e.Kind))
	}

	switch e.Op {
	case ir.OpNot:
		if len(e.OpArgs) != 1 {
			return 0, errUnsupportedExpr("not takes exactly one argument")
		}
		l, err := ce.encode(e.OpArgs[0])
		if err != nil {
			return 0, err
		}
		return l.Negate(), nil

	case ir.OpAnd:
		lits, err := ce.encodeAll(e.OpArgs)
		if err != nil {
			return 0, err
		}
		return ce.encodeAndLits(lits), nil

	case ir.OpOr:
		lits, err := ce.encodeAll(e.OpArgs)
		if err != nil {
			return 0, err
		}
		return ce.encodeOrLits(lits), nil

	case ir.OpImplies:
		if len(e.OpArgs) != 2 {
			return 0, errUnsupportedExpr("implies takes exactly two arguments")
		}
		a, err := ce.encode(e.OpArgs[0])
		if err != nil {
			return 0, err
		}
		b, err := ce.encode(e.OpArgs[1])
		if err != nil {
			return 0, err
		}
		return ce.encodeOrLits([]Lit{a.Negate(), b}), nil

	case ir.OpEq, ir.OpNeq, ir.OpLt, ir.OpLte, ir.OpGt, ir.OpGte:
		return ce.encodeComparison(e.Op, e.OpArgs)

	default:
		return 0, errUnsupportedExpr(string(e.Op))
	}
}

func (ce *constraintEncoder) encodeAll(args []ir.Expr) ([]Lit, error) {
	lits := make([]Lit, len(args))
	for i, a := range args {
		l, err := ce.encode(a)
		if err != nil {
			return nil, err
		}
		lits[i] = l
	}
	return lits, nil
}

// encodeAndLits introduces aux <-> (l1 ∧ ... ∧ ln).
func (ce *constraintEncoder) encodeAndLits(lits []Lit) Lit {
	aux := Lit(ce.freshVar())
	for _, l := range lits {
		ce.clauses = append(ce.clauses, Clause{aux.Negate(), l})
	}
	backward := make(Clause, 0, len(lits)+1)
	for _, l := range lits {
		backward = append(backward, l.Negate())
	}
	backward = append(backward, aux)
	ce.clauses = append(ce.clauses, backward)
	return aux
}

// encodeOrLits introduces aux <-> (l1 ∨ ... ∨ ln).
func (ce *constraintEncoder) encodeOrLits(lits []Lit) Lit {
	aux := Lit(ce.freshVar())
	for _, l := range lits {
		ce.clauses = append(ce.clauses, Clause{l.Negate(), aux})
	}
	forward := make(Clause, 0, len(lits)+1)
	forward = append(forward, lits...)
	forward = append(forward, aux.Negate())
	ce.clauses = append(ce.clauses, forward)
	return aux
}

// encodeComparison handles the leaf predicates: one side names a domain
// variable, the other is a concrete literal value.
func (ce *constraintEncoder) encodeComparison(op ir.OpKind, args []ir.Expr) (Lit, error) {
	if len(args) != 2 {
		return 0, errUnsupportedExpr(fmt.Sprintf("%s takes exactly two arguments", op))
	}

	domainName, ok := literalDomainName(args[0], ce.enc)
	valueExpr := args[1]
	if !ok {
		domainName, ok = literalDomainName(args[1], ce.enc)
		valueExpr = args[0]
	}
	if !ok {
		if name, isRef := unresolvedDomainRef(args, ce.enc); isRef {
			return 0, errUnknownConstraintVar(name)
		}
		return 0, errUnsupportedExpr("comparison must reference a domain variable by name")
	}

	value, err := literalToValue(valueExpr)
	if err != nil {
		return 0, err
	}
	domain := ce.enc.Domains[domainName]

	switch op {
	case ir.OpEq:
		lit, ok := LitForValue(domain, value)
		if !ok {
			return 0, errNoLiteralForValue(domainName)
		}
		return lit, nil

	case ir.OpNeq:
		lit, ok := LitForValue(domain, value)
		if !ok {
			return 0, errNoLiteralForValue(domainName)
		}
		return lit.Negate(), nil

	case ir.OpLt, ir.OpLte, ir.OpGt, ir.OpGte:
		if domain.Domain.Type != ir.DomainInt || value.Kind != typecheck.ValueInt {
			return 0, errUnsupportedExpr(fmt.Sprintf("%s requires an int domain", op))
		}
		var matching []Lit
		for key, v := range domain.Encoding.Variants {
			n, _ := strconv.ParseInt(key, 10, 64)
			if intCompares(op, n, value.I) {
				matching = append(matching, Lit(v))
			}
		}
		return ce.encodeOrLits(matching), nil

	default:
		return 0, errUnsupportedExpr(string(op))
	}
}

func intCompares(op ir.OpKind, n, target int64) bool {
	switch op {
	case ir.OpLt:
		return n < target
	case ir.OpLte:
		return n <= target
	case ir.OpGt:
		return n > target
	case ir.OpGte:
		return n >= target
	default:
		return false
	}
}

func literalDomainName(e ir.Expr, enc *EncodedInputSpace) (string, bool) {
	if e.Kind != ir.ExprLiteral || e.Literal.Kind != ir.LiteralString {
		return "", false
	}
	if _, ok := enc.Domains[e.Literal.Str]; !ok {
		return "", false
	}
	return e.Literal.Str, true
}

// unresolvedDomainRef recognizes the case where a comparison's operand looks
// exactly like a domain reference (a bare string literal) but names a domain
// that was never declared, so the caller can report a typo distinctly from
// an operand that isn't shaped like a domain reference at all.
func unresolvedDomainRef(args []ir.Expr, enc *EncodedInputSpace) (string, bool) {
	for _, a := range args {
		if a.Kind != ir.ExprLiteral || a.Literal.Kind != ir.LiteralString {
			continue
		}
		if _, ok := enc.Domains[a.Literal.Str]; !ok {
			return a.Literal.Str, true
		}
	}
	return "", false
}

func literalToValue(e ir.Expr) (typecheck.Value, error) {
	if e.Kind != ir.ExprLiteral {
		return typecheck.Value{}, errUnsupportedExpr("expected a literal value")
	}
	switch e.Literal.Kind {
	case ir.LiteralBool:
		return typecheck.BoolValue(e.Literal.Bool), nil
	case ir.LiteralInt:
		return typecheck.IntValue(e.Literal.Int), nil
	default:
		return typecheck.StringValue(e.Literal.Str), nil
	}
}
