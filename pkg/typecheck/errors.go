package typecheck

import "fmt"

// CompileError is returned when an expression fails arity or type checking
// against a Context, before it is ever evaluated.
type CompileError struct {
	Reason string
}

func (e *CompileError) Error() string {
	return e.Reason
}

func errUnknownFunction(name string) *CompileError {
	return &CompileError{Reason: fmt.Sprintf("unknown function %q", name)}
}

func errUnknownField(entity, field string) *CompileError {
	return &CompileError{Reason: fmt.Sprintf("unknown field %s.%s", entity, field)}
}

func errUnknownRefinement(name string) *CompileError {
	return &CompileError{Reason: fmt.Sprintf("unknown refinement %q", name)}
}

func errArity(name string, want, got int) *CompileError {
	return &CompileError{Reason: fmt.Sprintf("%s expects %d argument(s), got %d", name, want, got)}
}

func errNestingTooDeep(max int) *CompileError {
	return &CompileError{Reason: fmt.Sprintf("expression nests deeper than %d levels", max)}
}

func errOperandType(op string, argIndex int, want, got ValueKind) *CompileError {
	return &CompileError{Reason: fmt.Sprintf("%s: argument %d must be %s, got %s", op, argIndex, want, got)}
}

func errOperandKindsDiffer(op string, left, right ValueKind) *CompileError {
	return &CompileError{Reason: fmt.Sprintf("%s: operand types differ (%s vs %s)", op, left, right)}
}

// EvalError is returned when a type-checked expression cannot be evaluated
// against a particular ValueEnv at runtime.
type EvalError struct {
	Reason string
}

func (e *EvalError) Error() string {
	return e.Reason
}

func errFieldNotFound(entity, field string) *EvalError {
	return &EvalError{Reason: fmt.Sprintf("field not found: %s.%s", entity, field)}
}

func errTypeMismatch(expected string, actual Value) *EvalError {
	return &EvalError{Reason: fmt.Sprintf("type error: expected %s, got %v", expected, actual)}
}

func errUnsupported(reason string) *EvalError {
	return &EvalError{Reason: "cannot evaluate: " + reason}
}
