package adapter

import (
	"fmt"

	"github.com/ajhcs/beacon/pkg/typecheck"
)

// LoadError is returned when a guest module fails to load or its exports do
// not satisfy the bindings it is loaded against.
type LoadError struct {
	Reason string
}

func (e *LoadError) Error() string { return e.Reason }

func errMissingExport(action, function string) *LoadError {
	return &LoadError{Reason: fmt.Sprintf("action %q: guest does not export function %q", action, function)}
}

func errWrongArity(function string, want, got int) *LoadError {
	return &LoadError{Reason: fmt.Sprintf("guest function %q expects %d argument(s), binding declares %d", function, want, got)}
}

func errCompile(err error) *LoadError {
	return &LoadError{Reason: fmt.Sprintf("failed to compile guest module: %v", err)}
}

func errInstantiate(err error) *LoadError {
	return &LoadError{Reason: fmt.Sprintf("failed to instantiate guest module: %v", err)}
}

// CallError is returned for adapter-side misuse that is not itself a guest
// outcome (unknown action, wrong argument count, unknown snapshot id). Guest
// traps and fuel exhaustion are not CallErrors — they are reported as a
// Response, since they are findings-worthy outcomes, not adapter defects.
type CallError struct {
	Reason string
}

func (e *CallError) Error() string { return e.Reason }

func errUnknownAction(action string) *CallError {
	return &CallError{Reason: fmt.Sprintf("unknown action %q", action)}
}

func errUnknownObserver(binding string) *CallError {
	return &CallError{Reason: fmt.Sprintf("guest does not export observer function %q", binding)}
}

func errArgCount(function string, want, got int) *CallError {
	return &CallError{Reason: fmt.Sprintf("function %q expects %d argument(s), got %d", function, want, got)}
}

func errUnknownSnapshot(id string) *CallError {
	return &CallError{Reason: fmt.Sprintf("unknown snapshot %q", id)}
}

func errMalformedInstance(id string) *CallError {
	return &CallError{Reason: fmt.Sprintf("instance id %q is not a guest-addressable reference", id)}
}

func errUnboundArg(name string) *CallError {
	return &CallError{Reason: fmt.Sprintf("argument %q is bound in neither the frame nor the vector", name)}
}

func errUnsupportedResultShape(function string, n int) *CallError {
	return &CallError{Reason: fmt.Sprintf("function %q returns %d values, adapter supports 0 or 1", function, n)}
}

func errUnsupportedValueKind(kind typecheck.ValueKind) *CallError {
	return &CallError{Reason: fmt.Sprintf("value kind %q has no guest wire representation", kind)}
}
