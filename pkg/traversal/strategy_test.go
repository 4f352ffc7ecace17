package traversal

import (
	"math/rand"
	"testing"

	"github.com/ajhcs/beacon/pkg/compiler"
)

func TestPseudoRandomStrategyPicksNonzeroWeightedBranch(t *testing.T) {
	strategy := NewPseudoRandomStrategy(rand.New(rand.NewSource(1)))
	weights := NewWeightTable()
	weights.SetDefault("only", 1.0)

	eligible := []compiler.BranchEdge{{ID: "only", Target: 3}}
	decision := strategy.SelectBranch(eligible, 0, weights)
	if decision.BranchID != "only" || decision.BranchIndex != 0 {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestPseudoRandomStrategyZeroTotalFallsBackToFirst(t *testing.T) {
	strategy := NewPseudoRandomStrategy(rand.New(rand.NewSource(1)))
	weights := NewWeightTable()
	weights.SetDefault("a", 0)
	weights.SetDefault("b", 0)

	eligible := []compiler.BranchEdge{{ID: "a", Target: 1}, {ID: "b", Target: 2}}
	decision := strategy.SelectBranch(eligible, 0, weights)
	if decision.BranchID != "a" {
		t.Fatalf("expected fallback to first branch, got %q", decision.BranchID)
	}
}

func TestPseudoRandomStrategyChooseIterationsRespectsBounds(t *testing.T) {
	strategy := NewPseudoRandomStrategy(rand.New(rand.NewSource(1)))
	for i := 0; i < 50; i++ {
		decision := strategy.ChooseIterations(2, 4)
		if decision.Iterations < 2 || decision.Iterations > 4 {
			t.Fatalf("iteration count %d out of [2,4]", decision.Iterations)
		}
	}

	fixed := strategy.ChooseIterations(3, 3)
	if fixed.Iterations != 3 {
		t.Fatalf("expected fixed count 3, got %d", fixed.Iterations)
	}
}

func TestTargetedStrategyPrefersTarget(t *testing.T) {
	base := NewPseudoRandomStrategy(rand.New(rand.NewSource(1)))
	strategy := NewTargetedStrategy(base, "b")
	weights := NewWeightTable()
	weights.SetDefault("a", 100.0)
	weights.SetDefault("b", 1.0)

	eligible := []compiler.BranchEdge{{ID: "a", Target: 1}, {ID: "b", Target: 2}}
	decision := strategy.SelectBranch(eligible, 0, weights)
	if decision.BranchID != "b" {
		t.Fatalf("expected targeted branch b, got %q", decision.BranchID)
	}
}

func TestTargetedStrategyFallsBackWhenTargetAbsent(t *testing.T) {
	base := NewPseudoRandomStrategy(rand.New(rand.NewSource(1)))
	strategy := NewTargetedStrategy(base, "missing")
	weights := NewWeightTable()
	weights.SetDefault("a", 1.0)

	eligible := []compiler.BranchEdge{{ID: "a", Target: 1}}
	decision := strategy.SelectBranch(eligible, 0, weights)
	if decision.BranchID != "a" {
		t.Fatalf("expected fallback to base strategy's choice, got %q", decision.BranchID)
	}
}

func TestInvestigationStrategyReplaysLocality(t *testing.T) {
	base := NewPseudoRandomStrategy(rand.New(rand.NewSource(1)))
	strategy := NewInvestigationStrategy(base, []string{"b", "a"})
	weights := NewWeightTable()

	eligible := []compiler.BranchEdge{{ID: "a", Target: 1}, {ID: "b", Target: 2}}

	first := strategy.SelectBranch(eligible, 0, weights)
	if first.BranchID != "b" {
		t.Fatalf("expected first replayed choice b, got %q", first.BranchID)
	}
	second := strategy.SelectBranch(eligible, 0, weights)
	if second.BranchID != "a" {
		t.Fatalf("expected second replayed choice a, got %q", second.BranchID)
	}
}

func TestForceStrategyExhaustion(t *testing.T) {
	base := NewPseudoRandomStrategy(rand.New(rand.NewSource(1)))
	strategy := NewForceStrategy(base, []string{"a"})
	weights := NewWeightTable()
	eligible := []compiler.BranchEdge{{ID: "a", Target: 1}}

	if strategy.Exhausted() {
		t.Fatalf("expected strategy to not be exhausted before use")
	}
	strategy.SelectBranch(eligible, 0, weights)
	if !strategy.Exhausted() {
		t.Fatalf("expected strategy to be exhausted after replaying its sequence")
	}
}

func TestStrategyStackNeverPopsBase(t *testing.T) {
	base := NewPseudoRandomStrategy(rand.New(rand.NewSource(1)))
	stack := NewStrategyStack(base, 4)

	if stack.Pop() != nil {
		t.Fatalf("expected pop on a single-entry stack to be a no-op")
	}
	if stack.Current() != Strategy(base) {
		t.Fatalf("expected current strategy to remain base")
	}
}

func TestStrategyStackPushPopAndDepthLimit(t *testing.T) {
	base := NewPseudoRandomStrategy(rand.New(rand.NewSource(1)))
	stack := NewStrategyStack(base, 2)

	targeted := NewTargetedStrategy(base, "x")
	stack.Push(targeted)
	if stack.Depth() != 2 {
		t.Fatalf("expected depth 2, got %d", stack.Depth())
	}
	if stack.Current().Name() != "targeted" {
		t.Fatalf("expected targeted strategy on top, got %q", stack.Current().Name())
	}

	investigation := NewInvestigationStrategy(base, nil)
	stack.Push(investigation)
	if stack.Depth() != 2 {
		t.Fatalf("expected depth to stay capped at 2, got %d", stack.Depth())
	}
	if stack.Current().Name() != "investigation" {
		t.Fatalf("expected investigation strategy on top after eviction, got %q", stack.Current().Name())
	}

	popped := stack.Pop()
	if popped == nil || popped.Name() != "investigation" {
		t.Fatalf("expected pop to return investigation strategy")
	}
	if stack.Current().Name() != "pseudo_random" {
		t.Fatalf("expected base strategy back on top, got %q", stack.Current().Name())
	}
}
