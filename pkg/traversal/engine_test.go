package traversal

import (
	"context"
	"math/rand"
	"testing"

	"github.com/ajhcs/beacon/pkg/compiler"
	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/model"
)

func boolFieldDef() ir.FieldDef {
	return ir.FieldDef{FieldType: ir.FieldType{Type: ir.FieldBool}}
}

func trueLiteral() ir.Expr {
	return ir.Expr{Kind: ir.ExprLiteral, Literal: ir.Literal{Kind: ir.LiteralBool, Bool: true}}
}

func setActiveEffect(t *testing.T) map[string]ir.Effect {
	t.Helper()
	value, err := trueLiteral().MarshalJSON()
	if err != nil {
		t.Fatalf("marshal literal: %v", err)
	}
	return map[string]ir.Effect{
		"activate": {Sets: []ir.EffectSet{{Target: []string{"actor", "active"}, Value: value}}},
	}
}

func sessionsStayActiveInvariant() map[string]ir.Property {
	predicate := &ir.Expr{
		Kind:      ir.ExprQuantifier,
		QuantKind: ir.QuantForall,
		QuantVar:  "session",
		Domain:    "Session",
		Body: &ir.Expr{
			Kind:        ir.ExprFieldRef,
			FieldEntity: "session",
			FieldName:   "active",
		},
	}
	return map[string]ir.Property{
		"stays_active": {Type: ir.PropertyInvariant, Predicate: predicate},
	}
}

func newActivateSpec(t *testing.T) *ir.Spec {
	t.Helper()
	return &ir.Spec{
		Entities:   map[string]ir.Entity{"Session": {Fields: map[string]ir.FieldDef{"active": boolFieldDef()}}},
		Functions:  map[string]ir.FunctionDef{},
		Effects:    setActiveEffect(t),
		Properties: sessionsStayActiveInvariant(),
		Bindings: ir.Bindings{
			Actions: map[string]ir.ActionBinding{
				"activate": {Function: "activate", Args: []string{}},
			},
		},
	}
}

func compileSingleCall(t *testing.T, action string) *compiler.NdaGraph {
	t.Helper()
	graph, err := compiler.CompileProtocol(&ir.Protocol{
		Root: ir.ProtocolNode{Type: ir.NodeCall, Action: action},
	}, nil)
	if err != nil {
		t.Fatalf("compile protocol: %v", err)
	}
	return graph
}

func newTestEngine(graph *compiler.NdaGraph, spec *ir.Spec, kernel *model.Kernel, actor model.InstanceID) *TraversalEngine {
	strategies := NewStrategyStack(NewPseudoRandomStrategy(rand.New(rand.NewSource(1))), 4)
	return NewTraversalEngine(graph, spec, kernel, ModelOnlyExecutor{}, actor, strategies, NewMockVectorSource(), NewWeightTable(), 0, 0)
}

func TestRunPassAppliesEffectAndHoldsInvariant(t *testing.T) {
	spec := newActivateSpec(t)
	graph := compileSingleCall(t, "activate")

	kernel := model.NewKernel(spec, nil)
	actor := kernel.Create("Session")
	engine := newTestEngine(graph, spec, kernel, actor)

	result, err := engine.RunPass(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ActionsExecuted != 1 {
		t.Fatalf("expected 1 action executed, got %d", result.ActionsExecuted)
	}
	if len(result.Findings) != 0 {
		t.Fatalf("expected no findings, got %+v", result.Findings)
	}

	v, ok := kernel.State().Field(string(actor), "active")
	if !ok || !v.B {
		t.Fatalf("expected actor's active field to be true, got %+v ok=%v", v, ok)
	}

	if result.Trace.Len() != 1 {
		t.Fatalf("expected 1 trace entry, got %d", result.Trace.Len())
	}
	if result.Trace.Entries[0].Outcome != model.OutcomeValue {
		t.Fatalf("expected outcome value, got %v", result.Trace.Entries[0].Outcome)
	}
}

func TestRunPassGuardFailureSkipsEffect(t *testing.T) {
	spec := newActivateSpec(t)
	graph := compileSingleCall(t, "activate")
	falseGuard := &ir.Expr{Kind: ir.ExprLiteral, Literal: ir.Literal{Kind: ir.LiteralBool, Bool: false}}
	for _, node := range graph.Nodes {
		if node.Kind == compiler.NodeKindTerminal {
			node.Guard = falseGuard
		}
	}

	kernel := model.NewKernel(spec, nil)
	actor := kernel.Create("Session")
	engine := newTestEngine(graph, spec, kernel, actor)

	result, err := engine.RunPass(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ActionsExecuted != 0 {
		t.Fatalf("expected no actions executed under a false guard, got %d", result.ActionsExecuted)
	}
	if result.GuardsFailed != 1 {
		t.Fatalf("expected 1 guard failure, got %d", result.GuardsFailed)
	}
	if result.Trace.Len() != 0 {
		t.Fatalf("expected no trace entries for a guard-skipped action, got %d", result.Trace.Len())
	}

	v, ok := kernel.State().Field(string(actor), "active")
	if !ok || v.B {
		t.Fatalf("expected actor's active field to remain false, got %+v ok=%v", v, ok)
	}
}

func TestSelectBranchFiltersGuardsAndReportsCoverage(t *testing.T) {
	graph := compiler.NewNdaGraph()
	trueGuard := &ir.Expr{Kind: ir.ExprLiteral, Literal: ir.Literal{Kind: ir.LiteralBool, Bool: true}}
	falseGuard := &ir.Expr{Kind: ir.ExprLiteral, Literal: ir.Literal{Kind: ir.LiteralBool, Bool: false}}

	targetA := graph.AddNode(&compiler.GraphNode{Kind: compiler.NodeKindEnd})
	targetB := graph.AddNode(&compiler.GraphNode{Kind: compiler.NodeKindEnd})
	branch := graph.AddNode(&compiler.GraphNode{Kind: compiler.NodeKindBranch, Alternatives: []compiler.BranchEdge{
		{ID: "closed", Weight: 1, Target: targetA, Guard: falseGuard},
		{ID: "open", Weight: 1, Target: targetB, Guard: trueGuard},
	}})

	spec := &ir.Spec{Bindings: ir.Bindings{Actions: map[string]ir.ActionBinding{}}}
	kernel := model.NewKernel(spec, nil)
	actor := kernel.Create("Session")
	engine := newTestEngine(graph, spec, kernel, actor)

	target, ok := engine.selectBranch(branch, graph.Nodes[branch])
	if !ok {
		t.Fatalf("expected a branch to be selected")
	}
	if target != targetB {
		t.Fatalf("expected the only eligible branch's target %d, got %d", targetB, target)
	}

	foundCoverage := false
	for _, sig := range engine.signals {
		if sig.Kind == SignalCoverageDelta && sig.NodeID == targetB {
			foundCoverage = true
		}
	}
	if !foundCoverage {
		t.Fatalf("expected a coverage-delta signal for the newly visited target")
	}
}

func TestSelectBranchAllGuardsFalseEmitsGuardFailure(t *testing.T) {
	graph := compiler.NewNdaGraph()
	falseGuard := &ir.Expr{Kind: ir.ExprLiteral, Literal: ir.Literal{Kind: ir.LiteralBool, Bool: false}}
	target := graph.AddNode(&compiler.GraphNode{Kind: compiler.NodeKindEnd})
	branch := graph.AddNode(&compiler.GraphNode{Kind: compiler.NodeKindBranch, Alternatives: []compiler.BranchEdge{
		{ID: "closed", Weight: 1, Target: target, Guard: falseGuard},
	}})

	spec := &ir.Spec{Bindings: ir.Bindings{Actions: map[string]ir.ActionBinding{}}}
	kernel := model.NewKernel(spec, nil)
	actor := kernel.Create("Session")
	engine := newTestEngine(graph, spec, kernel, actor)

	_, ok := engine.selectBranch(branch, graph.Nodes[branch])
	if ok {
		t.Fatalf("expected no eligible branch")
	}
	if engine.guardsFailed != 1 {
		t.Fatalf("expected 1 guard failure recorded, got %d", engine.guardsFailed)
	}
}

func TestStepLoopDecidesOnceAndDecrements(t *testing.T) {
	graph := compiler.NewNdaGraph()
	body := graph.AddNode(&compiler.GraphNode{Kind: compiler.NodeKindEnd})
	loopExit := graph.AddNode(&compiler.GraphNode{Kind: compiler.NodeKindLoopExit})
	loopEntry := graph.AddNode(&compiler.GraphNode{Kind: compiler.NodeKindLoopEntry, BodyStart: body, Min: 2, Max: 2})
	graph.Edges[loopEntry] = []compiler.NodeID{body, loopExit}

	spec := &ir.Spec{Bindings: ir.Bindings{Actions: map[string]ir.ActionBinding{}}}
	kernel := model.NewKernel(spec, nil)
	actor := kernel.Create("Session")
	engine := newTestEngine(graph, spec, kernel, actor)

	first := engine.stepLoop(loopEntry, graph.Nodes[loopEntry])
	if first != body {
		t.Fatalf("expected first arrival to enter the body, got %d", first)
	}
	second := engine.stepLoop(loopEntry, graph.Nodes[loopEntry])
	if second != body {
		t.Fatalf("expected second arrival to enter the body again, got %d", second)
	}
	third := engine.stepLoop(loopEntry, graph.Nodes[loopEntry])
	if third != loopExit {
		t.Fatalf("expected third arrival to exit the loop, got %d", third)
	}
}
