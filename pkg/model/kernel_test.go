package model

import (
	"encoding/json"
	"testing"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

func mustExpr(t *testing.T, wire string) *ir.Expr {
	t.Helper()
	var e ir.Expr
	if err := json.Unmarshal([]byte(wire), &e); err != nil {
		t.Fatalf("failed to parse expression %s: %v", wire, err)
	}
	return &e
}

type fixedObserver struct {
	values map[string]typecheck.Value
}

func (f *fixedObserver) CallObserver(binding string, argInstances []string) (typecheck.Value, error) {
	v, ok := f.values[binding]
	if !ok {
		return typecheck.Value{}, errUnsupported("no observer value configured for " + binding)
	}
	return v, nil
}

func TestKernelSnapshotAndRollback(t *testing.T) {
	spec := &ir.Spec{Functions: map[string]ir.FunctionDef{}}
	k := NewKernel(spec, nil)

	id := k.Create("User")
	if err := k.Set(id, "authenticated", typecheck.BoolValue(false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := k.Snapshot()

	if err := k.Set(id, "authenticated", typecheck.BoolValue(true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ := k.State().Field(string(id), "authenticated")
	if !v.B {
		t.Fatal("expected authenticated to be true before rollback")
	}

	if err := k.Rollback(snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ = k.State().Field(string(id), "authenticated")
	if v.B {
		t.Error("expected rollback to restore authenticated=false")
	}
}

func TestKernelForkIsIndependent(t *testing.T) {
	spec := &ir.Spec{Functions: map[string]ir.FunctionDef{}}
	k := NewKernel(spec, nil)
	id := k.Create("User")
	if err := k.Set(id, "role", typecheck.StringValue("member")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	forked := k.Fork()
	if err := forked.Set(id, "role", typecheck.StringValue("admin")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	orig, _ := k.State().Field(string(id), "role")
	fork, _ := forked.State().Field(string(id), "role")

	if orig.S != "member" {
		t.Errorf("fork mutated original kernel's state: got %q", orig.S)
	}
	if fork.S != "admin" {
		t.Errorf("fork did not see its own write: got %q", fork.S)
	}
}

func TestKernelCallDerivedFunction(t *testing.T) {
	spec := &ir.Spec{
		Functions: map[string]ir.FunctionDef{
			"is_admin": {
				Classification: ir.FnDerived,
				Params:         []ir.ParamDef{{Name: "u", Type: "User"}},
				Body:           mustExpr(t, `["eq", ["field", "u", "role"], "admin"]`),
			},
		},
	}
	k := NewKernel(spec, nil)
	id := k.Create("User")
	if err := k.Set(id, "role", typecheck.StringValue("admin")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := k.resolver.Call(ir.FnDerived, "is_admin", []string{string(id)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.B {
		t.Error("expected is_admin to be true")
	}
}

func TestKernelCallObserverFunction(t *testing.T) {
	binding := "guest_balance"
	spec := &ir.Spec{
		Functions: map[string]ir.FunctionDef{
			"balance": {
				Classification: ir.FnObserver,
				Params:         []ir.ParamDef{{Name: "w", Type: "Wallet"}},
				Binding:        &binding,
			},
		},
	}
	obs := &fixedObserver{values: map[string]typecheck.Value{binding: typecheck.IntValue(42)}}
	k := NewKernel(spec, obs)

	v, err := k.resolver.Call(ir.FnObserver, "balance", []string{"Wallet#0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.I != 42 {
		t.Errorf("got %d, want 42", v.I)
	}
}

func TestKernelSatisfiesRefinement(t *testing.T) {
	spec := &ir.Spec{
		Refinements: map[string]ir.Refinement{
			"AuthenticatedGuest": {
				Base:      "User",
				Predicate: *mustExpr(t, `["and", ["eq", ["field", "self", "role"], "guest"], ["eq", ["field", "self", "authenticated"], true]]`),
			},
		},
	}
	k := NewKernel(spec, nil)
	id := k.Create("User")
	if err := k.Set(id, "role", typecheck.StringValue("guest")); err != nil {
		t.Fatal(err)
	}
	if err := k.Set(id, "authenticated", typecheck.BoolValue(true)); err != nil {
		t.Fatal(err)
	}

	ok, err := k.resolver.Satisfies("AuthenticatedGuest", string(id), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected instance to satisfy AuthenticatedGuest")
	}
}
