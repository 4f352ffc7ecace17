package coordinator

import "testing"

func fuel(n uint64) *uint64 { return &n }

func TestFirstTimeoutSchedulesRetry(t *testing.T) {
	tr := NewTimeoutTracker()

	d := tr.HandleTimeout("slow_fn", fuel(1_000_000))
	if d != nil {
		t.Fatalf("expected no directive on first timeout, got %+v", d)
	}
	reduced, ok := tr.NeedsRetry("slow_fn")
	if !ok || reduced != 500_000 {
		t.Fatalf("expected retry at half fuel, got %v ok=%v", reduced, ok)
	}
}

func TestSecondTimeoutProducesSkip(t *testing.T) {
	tr := NewTimeoutTracker()

	tr.HandleTimeout("slow_fn", fuel(1_000_000))
	d := tr.HandleTimeout("slow_fn", fuel(500_000))
	if d == nil || d.Kind != DirectiveSkip {
		t.Fatalf("expected a skip directive on second timeout, got %+v", d)
	}
	if !tr.IsSkipped("slow_fn") {
		t.Fatalf("expected slow_fn to be marked skipped")
	}
}

func TestRetrySuccessClearsState(t *testing.T) {
	tr := NewTimeoutTracker()

	tr.HandleTimeout("slow_fn", fuel(1_000_000))
	if _, ok := tr.NeedsRetry("slow_fn"); !ok {
		t.Fatalf("expected retry state before reporting success")
	}

	tr.ReportRetrySuccess("slow_fn")
	if _, ok := tr.NeedsRetry("slow_fn"); ok {
		t.Fatalf("expected retry state cleared after success")
	}
	if tr.IsSkipped("slow_fn") {
		t.Fatalf("expected slow_fn not skipped after retry success")
	}
}

func TestSkipExpiresAfterBudget(t *testing.T) {
	tr := NewTimeoutTracker()
	tr.defaultSkipBudget = 2

	tr.HandleTimeout("fn", fuel(100))
	tr.HandleTimeout("fn", fuel(50))
	if !tr.IsSkipped("fn") {
		t.Fatalf("expected fn skipped after second timeout")
	}

	tr.HandleTimeout("fn", nil)
	if !tr.IsSkipped("fn") {
		t.Fatalf("expected fn still skipped mid-budget")
	}
	tr.HandleTimeout("fn", nil)
	if !tr.IsSkipped("fn") {
		t.Fatalf("expected fn still skipped at budget exhaustion")
	}
	tr.HandleTimeout("fn", nil)
	if tr.IsSkipped("fn") {
		t.Fatalf("expected fn's skip to expire and reset")
	}
}

func TestUnknownActionStartsFresh(t *testing.T) {
	tr := NewTimeoutTracker()
	if _, ok := tr.NeedsRetry("unknown"); ok {
		t.Fatalf("expected no retry state for an untracked action")
	}
	if tr.IsSkipped("unknown") {
		t.Fatalf("expected an untracked action to not be skipped")
	}
}

func TestNoFuelUsesDefault(t *testing.T) {
	tr := NewTimeoutTracker()
	tr.HandleTimeout("fn", nil)
	reduced, ok := tr.NeedsRetry("fn")
	if !ok || reduced != 500_000 {
		t.Fatalf("expected default reduced fuel 500000, got %v ok=%v", reduced, ok)
	}
}
