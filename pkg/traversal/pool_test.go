package traversal

import (
	"context"
	"testing"

	"github.com/ajhcs/beacon/pkg/model"
)

func TestRunCampaignAggregatesAcrossPasses(t *testing.T) {
	spec := newActivateSpec(t)
	graph := compileSingleCall(t, "activate")
	kernel := model.NewKernel(spec, nil)

	cfg := DefaultCampaignConfig()
	cfg.Passes = 5
	cfg.MaxStepsPerPass = 10

	result, err := RunCampaign(context.Background(), graph, spec, kernel, Executable{
		NewExecutor: func() ActionExecutor { return ModelOnlyExecutor{} },
		ActorType:   "Session",
	}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PassesCompleted != 5 {
		t.Fatalf("expected 5 passes completed, got %d", result.PassesCompleted)
	}
	if result.TotalActions != 5 {
		t.Fatalf("expected 5 total actions (1 per pass), got %d", result.TotalActions)
	}
	if result.Coverage.ActionCounts["activate"] != 5 {
		t.Fatalf("expected activate counted 5 times, got %d", result.Coverage.ActionCounts["activate"])
	}
}

func TestRunCampaignPoolAssignsMonotonicSequenceNumbers(t *testing.T) {
	spec := newActivateSpec(t)
	graph := compileSingleCall(t, "activate")
	kernel := model.NewKernel(spec, nil)

	cfg := DefaultCampaignConfig()
	cfg.Passes = 8
	cfg.Workers = 3
	cfg.MaxStepsPerPass = 10

	result, err := RunCampaignPool(context.Background(), graph, spec, kernel, Executable{
		NewExecutor: func() ActionExecutor { return ModelOnlyExecutor{} },
		ActorType:   "Session",
	}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PassesCompleted != 8 {
		t.Fatalf("expected 8 passes completed, got %d", result.PassesCompleted)
	}

	seen := make(map[uint64]bool, len(result.Signals))
	for _, sig := range result.Signals {
		if sig.Seq == 0 {
			t.Fatalf("expected every merged signal to have a nonzero sequence number")
		}
		if seen[sig.Seq] {
			t.Fatalf("duplicate sequence number %d", sig.Seq)
		}
		seen[sig.Seq] = true
	}
}

func TestSeedWeightTableWithoutBranches(t *testing.T) {
	// A graph with no branch nodes should still seed a usable (empty)
	// table rather than panic.
	graph := compileSingleCall(t, "noop")
	table := seedWeightTable(graph)
	if table == nil {
		t.Fatalf("expected a non-nil weight table")
	}
}
