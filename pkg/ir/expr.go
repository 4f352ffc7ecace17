package ir

import (
	"encoding/json"
	"fmt"
)

// ExprKind tags the six shapes an expression node can take.
type ExprKind string

const (
	ExprLiteral    ExprKind = "literal"
	ExprFieldRef   ExprKind = "field"
	ExprOp         ExprKind = "op"
	ExprQuantifier ExprKind = "quantifier"
	ExprFnCall     ExprKind = "fncall"
	ExprIs         ExprKind = "is"
)

// OpKind is the set of operators an Op expression may apply.
type OpKind string

const (
	OpEq      OpKind = "eq"
	OpNeq     OpKind = "neq"
	OpAnd     OpKind = "and"
	OpOr      OpKind = "or"
	OpNot     OpKind = "not"
	OpImplies OpKind = "implies"
	OpLt      OpKind = "lt"
	OpLte     OpKind = "lte"
	OpGt      OpKind = "gt"
	OpGte     OpKind = "gte"
)

// QuantifierKind distinguishes universal from existential quantification.
type QuantifierKind string

const (
	QuantForall QuantifierKind = "forall"
	QuantExists QuantifierKind = "exists"
)

// LiteralKind tags the three bare-JSON literal shapes.
type LiteralKind string

const (
	LiteralBool   LiteralKind = "bool"
	LiteralInt    LiteralKind = "int"
	LiteralString LiteralKind = "string"
)

// Literal is a bare JSON scalar embedded in an expression.
type Literal struct {
	Kind LiteralKind
	Bool bool
	Int  int64
	Str  string
}

// Expr is one node of the predicate/guard/effect-value expression language.
// It decodes from the tagged-JSON-array wire format described in
// SPEC_FULL.md §3: a bare literal, or an array whose first element names
// the operator.
type Expr struct {
	Kind ExprKind

	// ExprLiteral
	Literal Literal

	// ExprFieldRef: ["field", entity, field]
	FieldEntity string
	FieldName   string

	// ExprOp: [op, args...]
	Op     OpKind
	OpArgs []Expr

	// ExprQuantifier: ["forall"|"exists", var, domain, body]
	QuantKind QuantifierKind
	QuantVar  string
	Domain    string
	Body      *Expr

	// ExprFnCall: ["derived"|"observer", name, args...]
	FnClass FnClassification
	FnName  string
	FnArgs  []string

	// ExprIs: ["is", entity, refinement, {params}]
	IsEntity     string
	IsRefinement string
	IsParams     map[string]string
}

// UnmarshalJSON decodes an Expr from the tagged-JSON-array wire format.
func (e *Expr) UnmarshalJSON(data []byte) error {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := parseExprValue(raw)
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

func parseExprValue(raw json.RawMessage) (*Expr, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &Expr{Kind: ExprLiteral, Literal: Literal{Kind: LiteralBool, Bool: b}}, nil
	}
	var i int64
	if err := json.Unmarshal(raw, &i); err == nil {
		return &Expr{Kind: ExprLiteral, Literal: Literal{Kind: LiteralInt, Int: i}}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &Expr{Kind: ExprLiteral, Literal: Literal{Kind: LiteralString, Str: s}}, nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, fmt.Errorf("unsupported expression value: %s", string(raw))
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("empty expression array")
	}

	var tag string
	if err := json.Unmarshal(arr[0], &tag); err != nil {
		return nil, fmt.Errorf("first element of expression array must be a string: %w", err)
	}

	switch tag {
	case "field":
		if len(arr) != 3 {
			return nil, fmt.Errorf("field expression requires 3 elements, got %d", len(arr))
		}
		entity, field, err := decodeTwoStrings(arr[1], arr[2])
		if err != nil {
			return nil, fmt.Errorf("field expression: %w", err)
		}
		return &Expr{Kind: ExprFieldRef, FieldEntity: entity, FieldName: field}, nil

	case "forall", "exists":
		if len(arr) != 4 {
			return nil, fmt.Errorf("%s expression requires 4 elements, got %d", tag, len(arr))
		}
		var v, dom string
		if err := json.Unmarshal(arr[1], &v); err != nil {
			return nil, fmt.Errorf("quantifier var must be a string: %w", err)
		}
		if err := json.Unmarshal(arr[2], &dom); err != nil {
			return nil, fmt.Errorf("quantifier domain must be a string: %w", err)
		}
		body, err := parseExprValue(arr[3])
		if err != nil {
			return nil, err
		}
		kind := QuantForall
		if tag == "exists" {
			kind = QuantExists
		}
		return &Expr{Kind: ExprQuantifier, QuantKind: kind, QuantVar: v, Domain: dom, Body: body}, nil

	case "derived", "observer":
		if len(arr) < 3 {
			return nil, fmt.Errorf("%s expression requires at least 3 elements, got %d", tag, len(arr))
		}
		var name string
		if err := json.Unmarshal(arr[1], &name); err != nil {
			return nil, fmt.Errorf("function name must be a string: %w", err)
		}
		args := make([]string, 0, len(arr)-2)
		for _, a := range arr[2:] {
			var s string
			if err := json.Unmarshal(a, &s); err != nil {
				return nil, fmt.Errorf("function arg must be a string: %w", err)
			}
			args = append(args, s)
		}
		class := FnDerived
		if tag == "observer" {
			class = FnObserver
		}
		return &Expr{Kind: ExprFnCall, FnClass: class, FnName: name, FnArgs: args}, nil

	case "is":
		if len(arr) < 3 || len(arr) > 4 {
			return nil, fmt.Errorf("is expression requires 3-4 elements, got %d", len(arr))
		}
		entity, refinement, err := decodeTwoStrings(arr[1], arr[2])
		if err != nil {
			return nil, fmt.Errorf("is expression: %w", err)
		}
		params := map[string]string{}
		if len(arr) == 4 {
			var obj map[string]string
			if err := json.Unmarshal(arr[3], &obj); err != nil {
				return nil, fmt.Errorf("is params must be a string-valued object: %w", err)
			}
			params = obj
		}
		return &Expr{Kind: ExprIs, IsEntity: entity, IsRefinement: refinement, IsParams: params}, nil

	default:
		op, ok := map[string]OpKind{
			"eq": OpEq, "neq": OpNeq, "and": OpAnd, "or": OpOr, "not": OpNot,
			"implies": OpImplies, "lt": OpLt, "lte": OpLte, "gt": OpGt, "gte": OpGte,
		}[tag]
		if !ok {
			return nil, fmt.Errorf("unknown expression operator: %s", tag)
		}
		args := make([]Expr, 0, len(arr)-1)
		for _, a := range arr[1:] {
			parsed, err := parseExprValue(a)
			if err != nil {
				return nil, err
			}
			args = append(args, *parsed)
		}
		return &Expr{Kind: ExprOp, Op: op, OpArgs: args}, nil
	}
}

func decodeTwoStrings(a, b json.RawMessage) (string, string, error) {
	var s1, s2 string
	if err := json.Unmarshal(a, &s1); err != nil {
		return "", "", err
	}
	if err := json.Unmarshal(b, &s2); err != nil {
		return "", "", err
	}
	return s1, s2, nil
}

// MarshalJSON re-encodes an Expr into the tagged-JSON-array wire format.
func (e Expr) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case ExprLiteral:
		switch e.Literal.Kind {
		case LiteralBool:
			return json.Marshal(e.Literal.Bool)
		case LiteralInt:
			return json.Marshal(e.Literal.Int)
		default:
			return json.Marshal(e.Literal.Str)
		}
	case ExprFieldRef:
		return json.Marshal([]interface{}{"field", e.FieldEntity, e.FieldName})
	case ExprOp:
		arr := make([]interface{}, 0, len(e.OpArgs)+1)
		arr = append(arr, string(e.Op))
		for _, a := range e.OpArgs {
			arr = append(arr, a)
		}
		return json.Marshal(arr)
	case ExprQuantifier:
		return json.Marshal([]interface{}{string(e.QuantKind), e.QuantVar, e.Domain, e.Body})
	case ExprFnCall:
		arr := make([]interface{}, 0, len(e.FnArgs)+2)
		arr = append(arr, string(e.FnClass), e.FnName)
		for _, a := range e.FnArgs {
			arr = append(arr, a)
		}
		return json.Marshal(arr)
	case ExprIs:
		if len(e.IsParams) == 0 {
			return json.Marshal([]interface{}{"is", e.IsEntity, e.IsRefinement})
		}
		return json.Marshal([]interface{}{"is", e.IsEntity, e.IsRefinement, e.IsParams})
	default:
		return nil, fmt.Errorf("unknown expression kind: %s", e.Kind)
	}
}
