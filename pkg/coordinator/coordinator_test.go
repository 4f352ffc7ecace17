package coordinator

import (
	"testing"

	"github.com/ajhcs/beacon/pkg/traversal"
)

func coverageSignal(action string) traversal.Signal {
	return traversal.Signal{Kind: traversal.SignalCoverageDelta, Action: action}
}

func TestEpochBoundaryTriggersProcessing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EpochSize = 3
	c := New(cfg)
	weights := traversal.NewWeightTable()

	if d := c.FeedSignal(coverageSignal("act"), weights, nil); len(d) != 0 {
		t.Fatalf("expected no directives before epoch boundary, got %v", d)
	}
	if d := c.FeedSignal(coverageSignal("act"), weights, nil); len(d) != 0 {
		t.Fatalf("expected no directives before epoch boundary, got %v", d)
	}
	d := c.FeedSignal(coverageSignal("act"), weights, nil)
	if len(d) == 0 {
		t.Fatalf("expected directives once epoch fills")
	}
	if c.Epoch() != 1 {
		t.Fatalf("expected epoch 1, got %d", c.Epoch())
	}
}

func TestFlushProcessesPartialEpoch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EpochSize = 100
	c := New(cfg)
	weights := traversal.NewWeightTable()

	c.FeedSignal(coverageSignal("a"), weights, nil)
	directives := c.Flush(weights, nil)
	if len(directives) == 0 {
		t.Fatalf("expected flush to fold a partial epoch")
	}
	if c.Epoch() != 1 {
		t.Fatalf("expected epoch 1 after flush, got %d", c.Epoch())
	}
}

func TestCoverageDeltaProducesAdjustWeight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EpochSize = 1
	c := New(cfg)
	weights := traversal.NewWeightTable()
	weights.SetDefault("act", 50.0)

	directives := c.FeedSignal(coverageSignal("act"), weights, nil)
	found := false
	for _, d := range directives {
		if d.Kind == DirectiveAdjustWeight && d.BranchID == "act" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an AdjustWeight directive for act, got %+v", directives)
	}
}

func TestGuardFailureProducesDecay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EpochSize = 1
	cfg.GuardFailureDecay = 0.3
	c := New(cfg)
	weights := traversal.NewWeightTable()
	weights.SetDefault("br", 100.0)

	directives := c.FeedSignal(traversal.Signal{Kind: traversal.SignalGuardFailure, BranchID: "br", Action: "a"}, weights, nil)
	found := false
	for _, d := range directives {
		if d.Kind == DirectiveAdjustWeight && d.Multiplier == 0.3 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a guard-failure decay directive, got %+v", directives)
	}
}

func TestCrashProducesForceAndBoost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EpochSize = 1
	c := New(cfg)
	weights := traversal.NewWeightTable()

	directives := c.FeedSignal(traversal.Signal{Kind: traversal.SignalCrash, Action: "buggy", Message: "trap"}, weights, nil)

	var hasForce, hasBoost bool
	for _, d := range directives {
		if d.Kind == DirectiveForce && d.Action == "buggy" {
			hasForce = true
		}
		if d.Kind == DirectiveAdjustWeight && d.BranchID == "buggy" {
			hasBoost = true
		}
	}
	if !hasForce || !hasBoost {
		t.Fatalf("expected both a force and a boost directive, got %+v", directives)
	}
}

func TestPlateauForcesUncoveredTargets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EpochSize = 1
	c := New(cfg)
	c.SetUncoveredTargetBranches([]string{"target_a", "target_b"})
	weights := traversal.NewWeightTable()

	directives := c.FeedSignal(traversal.Signal{Kind: traversal.SignalCoveragePlateau, CurrentCoverage: 0.8, DeltaRate: 0.001}, weights, nil)

	seen := map[string]bool{}
	for _, d := range directives {
		if d.Kind == DirectiveForce {
			seen[d.Action] = true
		}
	}
	if !seen["target_a"] || !seen["target_b"] {
		t.Fatalf("expected force directives for both uncovered targets, got %+v", directives)
	}
}

func TestDirectiveLogAccumulatesAcrossEpochs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EpochSize = 1
	c := New(cfg)
	weights := traversal.NewWeightTable()

	c.FeedSignal(coverageSignal("a"), weights, nil)
	c.FeedSignal(coverageSignal("b"), weights, nil)

	if c.Log().Len() != 2 {
		t.Fatalf("expected 2 log entries, got %d", c.Log().Len())
	}
	if c.Epoch() != 2 {
		t.Fatalf("expected epoch 2, got %d", c.Epoch())
	}
}

func TestSignalOrderingBySeq(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EpochSize = 3
	c := New(cfg)
	weights := traversal.NewWeightTable()

	// ThreadID and LocalStep are set to contradict Seq order, so a
	// comparator keyed on either of those would fold these in the wrong
	// order. Seq is the only field that should determine fold order.
	c.FeedSignal(traversal.Signal{Seq: 3, ThreadID: 0, LocalStep: 0, Kind: traversal.SignalCoverageDelta, Action: "third"}, weights, nil)
	c.FeedSignal(traversal.Signal{Seq: 1, ThreadID: 9, LocalStep: 9, Kind: traversal.SignalCoverageDelta, Action: "first"}, weights, nil)
	c.FeedSignal(traversal.Signal{Seq: 2, ThreadID: 5, LocalStep: 0, Kind: traversal.SignalCoverageDelta, Action: "second"}, weights, nil)

	entries := c.Log().Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 directive entries, got %d", len(entries))
	}
	want := []string{"first", "second", "third"}
	for i, e := range entries {
		if e.Directive.BranchID != want[i] {
			t.Fatalf("entry %d: expected branch %q, got %q", i, want[i], e.Directive.BranchID)
		}
		if i > 0 && e.Seq <= entries[i-1].Seq {
			t.Fatalf("expected strictly ascending log sequence numbers")
		}
	}
}

func TestTimeoutTwoStepProducesSkipOnSecondTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EpochSize = 1
	c := New(cfg)
	weights := traversal.NewWeightTable()

	first := c.FeedSignal(traversal.Signal{Kind: traversal.SignalTimeout, Action: "slow_fn"}, weights, nil)
	if len(first) != 0 {
		t.Fatalf("expected no directive on first timeout, got %+v", first)
	}

	second := c.FeedSignal(traversal.Signal{Kind: traversal.SignalTimeout, Action: "slow_fn"}, weights, nil)
	found := false
	for _, d := range second {
		if d.Kind == DirectiveSkip && d.BranchID == "slow_fn" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a skip directive on second timeout, got %+v", second)
	}
}
