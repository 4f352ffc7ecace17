package typecheck

import (
	"fmt"

	"github.com/ajhcs/beacon/pkg/ir"
)

// ValueKind tags the three runtime value shapes.
type ValueKind string

const (
	ValueBool   ValueKind = "bool"
	ValueInt    ValueKind = "int"
	ValueString ValueKind = "string"
)

// Value is a runtime expression value.
type Value struct {
	Kind ValueKind
	B    bool
	I    int64
	S    string
}

// BoolValue constructs a bool Value.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, B: b} }

// IntValue constructs an int Value.
func IntValue(i int64) Value { return Value{Kind: ValueInt, I: i} }

// StringValue constructs a string Value.
func StringValue(s string) Value { return Value{Kind: ValueString, S: s} }

// Equal reports whether two values are equal in both kind and content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueBool:
		return v.B == o.B
	case ValueInt:
		return v.I == o.I
	default:
		return v.S == o.S
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueBool:
		return fmt.Sprintf("%v", v.B)
	case ValueInt:
		return fmt.Sprintf("%d", v.I)
	default:
		return v.S
	}
}

// Env is the value environment an expression is evaluated against: the
// bound entity frame (variable name -> entity instance id) and the field
// table of the model state being checked.
type Env struct {
	// Bindings maps a frame variable name (e.g. "actor", "self", a
	// generator-bound name) to the concrete entity instance id it refers
	// to in the current model state.
	Bindings map[string]string

	// Fields resolves (entity instance id, field name) to its current
	// value in the model state.
	Fields FieldResolver

	// Functions resolves derived/observer function calls. May be nil if
	// the expression being evaluated is known not to call one.
	Functions FunctionResolver

	// Domains enumerates the instance ids of an entity type, for
	// quantifier evaluation. May be nil if the expression being evaluated
	// contains no quantifier.
	Domains DomainEnumerator

	// Refinements evaluates an "is" refinement's predicate against an
	// entity instance and parameter bindings. May be nil if the
	// expression being evaluated contains no "is" test.
	Refinements RefinementResolver
}

// FieldResolver looks up the current value of one field of one bound
// entity instance.
type FieldResolver interface {
	Field(entityInstance, field string) (Value, bool)
}

// FunctionResolver evaluates a derived or observer function call given the
// instance ids bound to its arguments.
type FunctionResolver interface {
	Call(class ir.FnClassification, name string, argInstances []string) (Value, error)
}

// DomainEnumerator lists every instance id currently alive for an entity
// type, for forall/exists evaluation.
type DomainEnumerator interface {
	Instances(entityType string) []string
}

// RefinementResolver evaluates whether an entity instance currently
// satisfies a named refinement, given parameter bindings (instance ids
// each named parameter is bound to).
type RefinementResolver interface {
	Satisfies(refinement, entityInstance string, params map[string]string) (bool, error)
}

// resolveFrame turns a frame variable name appearing in an expression into
// the concrete entity instance id it's bound to.
func (e *Env) resolveFrame(name string) (string, bool) {
	instance, ok := e.Bindings[name]
	return instance, ok
}

// Eval evaluates a type-checked expression against env.
func Eval(expr *ir.Expr, env *Env) (Value, error) {
	switch expr.Kind {
	case ir.ExprLiteral:
		switch expr.Literal.Kind {
		case ir.LiteralBool:
			return BoolValue(expr.Literal.Bool), nil
		case ir.LiteralInt:
			return IntValue(expr.Literal.Int), nil
		default:
			return StringValue(expr.Literal.Str), nil
		}

	case ir.ExprFieldRef:
		instance, ok := env.resolveFrame(expr.FieldEntity)
		if !ok {
			instance = expr.FieldEntity
		}
		v, ok := env.Fields.Field(instance, expr.FieldName)
		if !ok {
			return Value{}, errFieldNotFound(expr.FieldEntity, expr.FieldName)
		}
		return v, nil

	case ir.ExprOp:
		return evalOp(expr, env)

	case ir.ExprQuantifier:
		return evalQuantifier(expr, env)

	case ir.ExprFnCall:
		if env.Functions == nil {
			return Value{}, errUnsupported("no function resolver bound")
		}
		instances := make([]string, len(expr.FnArgs))
		for i, a := range expr.FnArgs {
			inst, ok := env.resolveFrame(a)
			if !ok {
				inst = a
			}
			instances[i] = inst
		}
		v, err := env.Functions.Call(expr.FnClass, expr.FnName, instances)
		if err != nil {
			return Value{}, err
		}
		return v, nil

	case ir.ExprIs:
		if env.Refinements == nil {
			return Value{}, errUnsupported("no refinement resolver bound")
		}
		instance, ok := env.resolveFrame(expr.IsEntity)
		if !ok {
			instance = expr.IsEntity
		}
		params := make(map[string]string, len(expr.IsParams))
		for k, v := range expr.IsParams {
			if inst, ok := env.resolveFrame(v); ok {
				params[k] = inst
			} else {
				params[k] = v
			}
		}
		ok2, err := env.Refinements.Satisfies(expr.IsRefinement, instance, params)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(ok2), nil

	default:
		return Value{}, errUnsupported("unknown expression kind")
	}
}

func evalOp(expr *ir.Expr, env *Env) (Value, error) {
	args := expr.OpArgs
	switch expr.Op {
	case ir.OpEq:
		left, err := Eval(&args[0], env)
		if err != nil {
			return Value{}, err
		}
		right, err := Eval(&args[1], env)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(left.Equal(right)), nil

	case ir.OpNeq:
		left, err := Eval(&args[0], env)
		if err != nil {
			return Value{}, err
		}
		right, err := Eval(&args[1], env)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(!left.Equal(right)), nil

	case ir.OpAnd:
		for i := range args {
			v, err := Eval(&args[i], env)
			if err != nil {
				return Value{}, err
			}
			if v.Kind != ValueBool {
				return Value{}, errTypeMismatch("bool", v)
			}
			if !v.B {
				return BoolValue(false), nil
			}
		}
		return BoolValue(true), nil

	case ir.OpOr:
		for i := range args {
			v, err := Eval(&args[i], env)
			if err != nil {
				return Value{}, err
			}
			if v.Kind != ValueBool {
				return Value{}, errTypeMismatch("bool", v)
			}
			if v.B {
				return BoolValue(true), nil
			}
		}
		return BoolValue(false), nil

	case ir.OpNot:
		v, err := Eval(&args[0], env)
		if err != nil {
			return Value{}, err
		}
		if v.Kind != ValueBool {
			return Value{}, errTypeMismatch("bool", v)
		}
		return BoolValue(!v.B), nil

	case ir.OpImplies:
		antecedent, err := Eval(&args[0], env)
		if err != nil {
			return Value{}, err
		}
		if antecedent.Kind != ValueBool {
			return Value{}, errTypeMismatch("bool", antecedent)
		}
		if !antecedent.B {
			return BoolValue(true), nil
		}
		return Eval(&args[1], env)

	case ir.OpLt:
		return evalIntCompare(args, env, func(a, b int64) bool { return a < b })
	case ir.OpLte:
		return evalIntCompare(args, env, func(a, b int64) bool { return a <= b })
	case ir.OpGt:
		return evalIntCompare(args, env, func(a, b int64) bool { return a > b })
	case ir.OpGte:
		return evalIntCompare(args, env, func(a, b int64) bool { return a >= b })

	default:
		return Value{}, errUnsupported("unknown operator " + string(expr.Op))
	}
}

func evalIntCompare(args []ir.Expr, env *Env, cmp func(a, b int64) bool) (Value, error) {
	left, err := Eval(&args[0], env)
	if err != nil {
		return Value{}, err
	}
	right, err := Eval(&args[1], env)
	if err != nil {
		return Value{}, err
	}
	if left.Kind != ValueInt || right.Kind != ValueInt {
		return Value{}, errTypeMismatch("int", left)
	}
	return BoolValue(cmp(left.I, right.I)), nil
}

func evalQuantifier(expr *ir.Expr, env *Env) (Value, error) {
	if env.Domains == nil {
		return Value{}, errUnsupported("no domain enumerator bound")
	}
	instances := env.Domains.Instances(expr.Domain)

	child := *env
	bindings := make(map[string]string, len(env.Bindings)+1)
	for k, v := range env.Bindings {
		bindings[k] = v
	}
	child.Bindings = bindings

	for _, inst := range instances {
		bindings[expr.QuantVar] = inst
		v, err := Eval(expr.Body, &child)
		if err != nil {
			return Value{}, err
		}
		if v.Kind != ValueBool {
			return Value{}, errTypeMismatch("bool", v)
		}
		switch expr.QuantKind {
		case ir.QuantForall:
			if !v.B {
				return BoolValue(false), nil
			}
		case ir.QuantExists:
			if v.B {
				return BoolValue(true), nil
			}
		}
	}

	switch expr.QuantKind {
	case ir.QuantForall:
		return BoolValue(true), nil
	default:
		return BoolValue(false), nil
	}
}
