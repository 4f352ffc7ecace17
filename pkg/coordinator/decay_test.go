package coordinator

import (
	"testing"

	"github.com/ajhcs/beacon/pkg/traversal"
)

func TestApplyEpochDecayReducesWeights(t *testing.T) {
	weights := traversal.NewWeightTable()
	weights.Set("b1", 0, 100.0)
	weights.Set("b2", 0, 50.0)

	applyEpochDecay(weights, DecayConfig{GlobalDecay: 0.9, MinWeight: 0.1})

	if got := weights.Get("b1", 0); got < 89.9 || got > 90.1 {
		t.Fatalf("expected b1 decayed to ~90, got %v", got)
	}
	if got := weights.Get("b2", 0); got < 44.9 || got > 45.1 {
		t.Fatalf("expected b2 decayed to ~45, got %v", got)
	}
}

func TestApplyEpochDecayRespectsMinimum(t *testing.T) {
	weights := traversal.NewWeightTable()
	weights.Set("b1", 0, 0.2)

	applyEpochDecay(weights, DecayConfig{GlobalDecay: 0.1, MinWeight: 0.1})

	if got := weights.Get("b1", 0); got != 0.1 {
		t.Fatalf("expected clamp to floor 0.1, got %v", got)
	}
}

func TestApplyEpochDecayPreservesZeroForUnreachable(t *testing.T) {
	weights := traversal.NewWeightTable()
	weights.Set("unreachable", 0, 0.0)

	applyEpochDecay(weights, DefaultDecayConfig())

	if got := weights.Get("unreachable", 0); got != 0.0 {
		t.Fatalf("expected provably unreachable branch to stay at zero, got %v", got)
	}
}

func TestCoverageFloorBoostsUncovered(t *testing.T) {
	weights := traversal.NewWeightTable()
	weights.Set("covered", 0, 90.0)
	weights.Set("uncovered_a", 0, 1.0)
	weights.Set("uncovered_b", 0, 1.0)

	enforceCoverageFloor(weights, []string{"uncovered_a", "uncovered_b"}, 0.05)

	total := weights.Get("uncovered_a", 0) + weights.Get("uncovered_b", 0)
	if total < 5.0 {
		t.Fatalf("expected uncovered total >= 5.0, got %v", total)
	}
}

func TestCoverageFloorRestoresFromZero(t *testing.T) {
	weights := traversal.NewWeightTable()
	weights.Set("dead_a", 0, 0.0)
	weights.Set("dead_b", 0, 0.0)

	enforceCoverageFloor(weights, []string{"dead_a", "dead_b"}, 0.05)

	if weights.Get("dead_a", 0) <= 0 || weights.Get("dead_b", 0) <= 0 {
		t.Fatalf("expected both dead branches restored above zero")
	}
}

func TestCoverageFloorNoOpAboveThreshold(t *testing.T) {
	weights := traversal.NewWeightTable()
	weights.Set("healthy", 0, 50.0)

	enforceCoverageFloor(weights, []string{"healthy"}, 0.05)

	if got := weights.Get("healthy", 0); got != 50.0 {
		t.Fatalf("expected no change above threshold, got %v", got)
	}
}

func TestCoverageFloorEmptyBranchesNoOp(t *testing.T) {
	weights := traversal.NewWeightTable()
	weights.Set("b1", 0, 10.0)

	enforceCoverageFloor(weights, nil, 0.05)

	if got := weights.Get("b1", 0); got != 10.0 {
		t.Fatalf("expected no change with no uncovered branches, got %v", got)
	}
}
