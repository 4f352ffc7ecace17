package model

import (
	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

// specResolver is the shared dispatch logic behind typecheck.Env's
// function and refinement resolution: given a compiled spec and a state,
// it evaluates derived function bodies recursively, routes observer calls
// to an injected ObserverCaller, and evaluates refinement predicates with
// "self" bound. The live Kernel and historical temporal-rule checking both
// build one of these, over a mutable and a fixed state respectively.
type specResolver struct {
	spec      *ir.Spec
	observers ObserverCaller
	state     *State
}

func (r *specResolver) env(frame map[string]string) *typecheck.Env {
	return &typecheck.Env{
		Bindings:    frame,
		Fields:      *r.state,
		Functions:   r,
		Domains:     *r.state,
		Refinements: r,
	}
}

// Call implements typecheck.FunctionResolver.
func (r *specResolver) Call(class ir.FnClassification, name string, argInstances []string) (typecheck.Value, error) {
	fn, ok := r.spec.Functions[name]
	if !ok {
		return typecheck.Value{}, errUnknownFunction(name)
	}
	if fn.Classification != class {
		return typecheck.Value{}, errClassMismatch(name, class, fn.Classification)
	}

	switch fn.Classification {
	case ir.FnDerived:
		if fn.Body == nil {
			return typecheck.Value{}, errMissingBody(name)
		}
		frame := make(map[string]string, len(fn.Params))
		for i, p := range fn.Params {
			if i >= len(argInstances) {
				return typecheck.Value{}, errArity(name, len(fn.Params), len(argInstances))
			}
			frame[p.Name] = argInstances[i]
		}
		return typecheck.Eval(fn.Body, r.env(frame))

	case ir.FnObserver:
		if r.observers == nil {
			return typecheck.Value{}, errUnsupported("no observer caller bound")
		}
		if fn.Binding == nil {
			return typecheck.Value{}, errMissingBinding(name)
		}
		return r.observers.CallObserver(*fn.Binding, argInstances)

	default:
		return typecheck.Value{}, errUnknownFunction(name)
	}
}

// Satisfies implements typecheck.RefinementResolver.
func (r *specResolver) Satisfies(refinement, entityInstance string, params map[string]string) (bool, error) {
	ref, ok := r.spec.Refinements[refinement]
	if !ok {
		return false, errUnknownRefinement(refinement)
	}
	frame := make(map[string]string, len(params)+1)
	for k, v := range params {
		frame[k] = v
	}
	frame["self"] = entityInstance

	v, err := typecheck.Eval(&ref.Predicate, r.env(frame))
	if err != nil {
		return false, err
	}
	if v.Kind != typecheck.ValueBool {
		return false, errTypeMismatch("bool", v)
	}
	return v.B, nil
}
