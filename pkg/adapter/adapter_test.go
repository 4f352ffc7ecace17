package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/model"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

func testSpec() *ir.Spec {
	binding := func(fn string, args ...string) ir.ActionBinding {
		return ir.ActionBinding{Function: fn, Args: args}
	}
	return &ir.Spec{
		Bindings: ir.Bindings{
			Actions: map[string]ir.ActionBinding{
				"increment":   binding("increment", "n"),
				"echo_second": binding("two_arg", "a", "b"),
				"void_action": binding("void_action", "a", "b"),
			},
		},
		Functions: map[string]ir.FunctionDef{
			"is_seven": {
				Classification: ir.FnObserver,
				Binding:        strPtr("get_value"),
				Returns:        "int",
			},
		},
	}
}

func strPtr(s string) *string { return &s }

func testConfig() Config {
	return Config{MemoryLimitPages: 4, FuelBudget: 500 * time.Millisecond}
}

func TestLoadResolvesActions(t *testing.T) {
	ctx := context.Background()
	a, err := Load(ctx, buildTestGuestModule(), testSpec(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close(ctx)

	if len(a.actions) != 3 {
		t.Errorf("expected 3 resolved actions, got %d", len(a.actions))
	}
}

func TestLoadMissingExportIsFatal(t *testing.T) {
	ctx := context.Background()
	spec := testSpec()
	spec.Bindings.Actions["missing"] = ir.ActionBinding{Function: "does_not_exist"}

	_, err := Load(ctx, buildTestGuestModule(), spec, testConfig())
	if err == nil {
		t.Fatal("expected a fatal load error for a missing export")
	}
}

func TestCallReturnsValue(t *testing.T) {
	ctx := context.Background()
	a, err := Load(ctx, buildTestGuestModule(), testSpec(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close(ctx)

	resp, err := a.Call(ctx, "increment", []int64{41})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Outcome != model.OutcomeValue {
		t.Fatalf("expected value outcome, got %s", resp.Outcome)
	}
	if resp.Value == nil || *resp.Value != 42 {
		t.Errorf("expected 42, got %+v", resp.Value)
	}
}

func TestCallEchoesSecondArgument(t *testing.T) {
	ctx := context.Background()
	a, err := Load(ctx, buildTestGuestModule(), testSpec(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close(ctx)

	resp, err := a.Call(ctx, "echo_second", []int64{1, 9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Value == nil || *resp.Value != 9 {
		t.Errorf("expected 9, got %+v", resp.Value)
	}
}

func TestCallVoidActionHasNoValue(t *testing.T) {
	ctx := context.Background()
	a, err := Load(ctx, buildTestGuestModule(), testSpec(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close(ctx)

	resp, err := a.Call(ctx, "void_action", []int64{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Outcome != model.OutcomeValue {
		t.Fatalf("expected value outcome for a completed void call, got %s", resp.Outcome)
	}
	if resp.Value != nil {
		t.Errorf("expected no value for a void action, got %v", *resp.Value)
	}
}

func TestCallUnknownActionErrors(t *testing.T) {
	ctx := context.Background()
	a, err := Load(ctx, buildTestGuestModule(), testSpec(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close(ctx)

	if _, err := a.Call(ctx, "nonexistent", nil); err == nil {
		t.Error("expected an error calling an unbound action")
	}
}

func TestCallObserverDecodesIntByDefault(t *testing.T) {
	ctx := context.Background()
	a, err := Load(ctx, buildTestGuestModule(), testSpec(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close(ctx)

	v, err := a.CallObserver("get_value", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != typecheck.ValueInt || v.I != 7 {
		t.Errorf("expected int 7, got %+v", v)
	}
}

func TestCallObserverUnknownBindingErrors(t *testing.T) {
	ctx := context.Background()
	a, err := Load(ctx, buildTestGuestModule(), testSpec(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close(ctx)

	if _, err := a.CallObserver("nonexistent", nil); err == nil {
		t.Error("expected an error for an unbound observer function")
	}
}

func TestPairedSnapshotRoundTrips(t *testing.T) {
	ctx := context.Background()
	a, err := Load(ctx, buildTestGuestModule(), testSpec(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close(ctx)

	spec := testSpec()
	kernel := model.NewKernel(spec, a)
	kernel.Create("User")

	snap := a.Snapshot(kernel)
	kernel.Create("User")
	if got := len(kernel.State().Instances("User")); got != 2 {
		t.Fatalf("expected 2 instances before restore, got %d", got)
	}

	if err := a.Restore(kernel, snap); err != nil {
		t.Fatalf("unexpected error restoring: %v", err)
	}
	if got := len(kernel.State().Instances("User")); got != 1 {
		t.Errorf("expected 1 instance after restore, got %d", got)
	}
}

func TestResolveArgsFromFrameAndVector(t *testing.T) {
	binding := ir.ActionBinding{Args: []string{"actor", "count"}}
	frame := map[string]string{"actor": "User#3"}
	vector := map[string]typecheck.Value{"count": typecheck.IntValue(5)}

	args, err := ResolveArgs(binding, frame, vector)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 2 || args[0] != 3 || args[1] != 5 {
		t.Errorf("expected [3 5], got %v", args)
	}
}

func TestResolveArgsUnboundNameErrors(t *testing.T) {
	binding := ir.ActionBinding{Args: []string{"missing"}}
	if _, err := ResolveArgs(binding, nil, nil); err == nil {
		t.Error("expected an error for an unbound argument name")
	}
}
