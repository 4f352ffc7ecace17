package model

import (
	"fmt"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

// EvalError is returned when the kernel cannot resolve or evaluate a
// function call, refinement test, or frame reference against the current
// spec and state. It is distinct from typecheck.EvalError: that one fires
// while walking an expression tree, this one fires at the kernel's own
// dispatch points (unknown function, wrong classification, unbound frame
// name).
type EvalError struct {
	Reason string
}

func (e *EvalError) Error() string { return e.Reason }

func errUnknownFunction(name string) *EvalError {
	return &EvalError{Reason: fmt.Sprintf("unknown function %q", name)}
}

func errClassMismatch(name string, want, got ir.FnClassification) *EvalError {
	return &EvalError{Reason: fmt.Sprintf("function %q is %s, not %s", name, got, want)}
}

func errMissingBody(name string) *EvalError {
	return &EvalError{Reason: fmt.Sprintf("derived function %q has no body", name)}
}

func errMissingBinding(name string) *EvalError {
	return &EvalError{Reason: fmt.Sprintf("observer function %q has no binding", name)}
}

func errUnknownRefinement(name string) *EvalError {
	return &EvalError{Reason: fmt.Sprintf("unknown refinement %q", name)}
}

func errArity(name string, want, got int) *EvalError {
	return &EvalError{Reason: fmt.Sprintf("%s expects %d argument(s), got %d", name, want, got)}
}

func errTypeMismatch(expected string, actual typecheck.Value) *EvalError {
	return &EvalError{Reason: fmt.Sprintf("type error: expected %s, got %v", expected, actual)}
}

func errUnsupported(reason string) *EvalError {
	return &EvalError{Reason: "cannot evaluate: " + reason}
}

func errUnknownSnapshot(id string) *EvalError {
	return &EvalError{Reason: fmt.Sprintf("unknown snapshot %q", id)}
}

// errUnresolvedFrameName is returned when an effect's "sets" entry targets
// a frame variable that was never bound by "actor" or a "creates" clause.
// The original Rust model silently treated this as a no-op; recording it
// as a typed error instead surfaces spec authoring mistakes immediately
// rather than letting a dropped assignment masquerade as a passing run.
func errUnresolvedFrameName(name string) *EvalError {
	return &EvalError{Reason: fmt.Sprintf("unresolved frame name %q in effect", name)}
}
