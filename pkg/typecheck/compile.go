package typecheck

import (
	"fmt"

	"github.com/ajhcs/beacon/pkg/ir"
)

// maxExprDepth bounds how deeply an expression may nest before compilation
// rejects it. A predicate this deep is almost certainly a generator bug
// (self-referential derived function, runaway macro expansion) rather than
// something a human wrote by hand.
const maxExprDepth = 64

var binaryOps = map[ir.OpKind]bool{
	ir.OpEq: true, ir.OpNeq: true, ir.OpLt: true, ir.OpLte: true,
	ir.OpGt: true, ir.OpGte: true, ir.OpImplies: true,
}

var fieldValueKind = map[ir.FieldKind]ValueKind{
	ir.FieldString: ValueString,
	ir.FieldBool:   ValueBool,
	ir.FieldInt:    ValueInt,
	ir.FieldEnum:   ValueString,
	ir.FieldRef:    ValueString,
}

var literalValueKind = map[ir.LiteralKind]ValueKind{
	ir.LiteralBool:   ValueBool,
	ir.LiteralInt:    ValueInt,
	ir.LiteralString: ValueString,
}

// Check walks an expression and verifies every field reference, function
// call, and refinement reference resolves against c, that every operator is
// applied with the arity and operand types it requires, and that the
// expression does not nest past maxExprDepth. A type mismatch caught here
// is a fatal compile-time rejection, not a runtime finding — the same
// standing as an unresolved identifier.
func (c *Context) Check(e *ir.Expr) error {
	_, err := c.checkTyped(e, 0)
	return err
}

// checkTyped is Check's recursive worker. It returns the ValueKind e
// statically evaluates to, so a caller one level up (an operator, a
// quantifier body) can cross-check it against what that position requires.
func (c *Context) checkTyped(e *ir.Expr, depth int) (ValueKind, error) {
	if e == nil {
		return "", nil
	}
	if depth > maxExprDepth {
		return "", errNestingTooDeep(maxExprDepth)
	}

	switch e.Kind {
	case ir.ExprLiteral:
		kind, ok := literalValueKind[e.Literal.Kind]
		if !ok {
			return "", &CompileError{Reason: "unknown literal kind"}
		}
		return kind, nil

	case ir.ExprFieldRef:
		fieldKind, ok := c.FieldType(e.FieldEntity, e.FieldName)
		if !ok {
			return "", errUnknownField(e.FieldEntity, e.FieldName)
		}
		kind, ok := fieldValueKind[fieldKind]
		if !ok {
			return "", &CompileError{Reason: "unknown field type for " + e.FieldEntity + "." + e.FieldName}
		}
		return kind, nil

	case ir.ExprOp:
		switch e.Op {
		case ir.OpNot:
			if len(e.OpArgs) != 1 {
				return "", errArity("not", 1, len(e.OpArgs))
			}
		case ir.OpAnd, ir.OpOr:
			if len(e.OpArgs) < 1 {
				return "", errArity(string(e.Op), 1, len(e.OpArgs))
			}
		default:
			if binaryOps[e.Op] && len(e.OpArgs) != 2 {
				return "", errArity(string(e.Op), 2, len(e.OpArgs))
			}
		}

		argKinds := make([]ValueKind, len(e.OpArgs))
		for i := range e.OpArgs {
			kind, err := c.checkTyped(&e.OpArgs[i], depth+1)
			if err != nil {
				return "", err
			}
			argKinds[i] = kind
		}

		switch e.Op {
		case ir.OpAnd, ir.OpOr, ir.OpNot, ir.OpImplies:
			for i, kind := range argKinds {
				if kind != ValueBool {
					return "", errOperandType(string(e.Op), i, ValueBool, kind)
				}
			}
			return ValueBool, nil

		case ir.OpLt, ir.OpLte, ir.OpGt, ir.OpGte:
			for i, kind := range argKinds {
				if kind != ValueInt {
					return "", errOperandType(string(e.Op), i, ValueInt, kind)
				}
			}
			return ValueBool, nil

		case ir.OpEq, ir.OpNeq:
			if argKinds[0] != argKinds[1] {
				return "", errOperandKindsDiffer(string(e.Op), argKinds[0], argKinds[1])
			}
			return ValueBool, nil

		default:
			return "", &CompileError{Reason: "unknown operator " + string(e.Op)}
		}

	case ir.ExprQuantifier:
		if _, ok := c.Entities[e.Domain]; !ok {
			return "", &CompileError{Reason: "unknown quantifier domain entity: " + e.Domain}
		}
		bodyKind, err := c.checkTyped(e.Body, depth+1)
		if err != nil {
			return "", err
		}
		if bodyKind != ValueBool {
			return "", errOperandType(string(e.QuantKind), 0, ValueBool, bodyKind)
		}
		return ValueBool, nil

	case ir.ExprFnCall:
		fn, ok := c.Functions[e.FnName]
		if !ok {
			return "", errUnknownFunction(e.FnName)
		}
		if fn.Classification != e.FnClass {
			return "", &CompileError{Reason: "function " + e.FnName + " classification mismatch"}
		}
		if len(fn.Params) != len(e.FnArgs) {
			return "", errArity(e.FnName, len(fn.Params), len(e.FnArgs))
		}
		kind := ValueKind(fn.Returns)
		switch kind {
		case ValueBool, ValueInt, ValueString:
			return kind, nil
		default:
			return "", &CompileError{Reason: fmt.Sprintf("function %s declares unknown return type %q", e.FnName, fn.Returns)}
		}

	case ir.ExprIs:
		if _, ok := c.Refinements[e.IsRefinement]; !ok {
			return "", errUnknownRefinement(e.IsRefinement)
		}
		return ValueBool, nil

	default:
		return "", &CompileError{Reason: "unknown expression kind"}
	}
}
