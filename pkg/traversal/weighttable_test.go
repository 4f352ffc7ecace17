package traversal

import "testing"

func TestWeightTableFallsBackToDefaultThenOne(t *testing.T) {
	table := NewWeightTable()
	if got := table.Get("b1", 7); got != 1.0 {
		t.Fatalf("expected fallback weight 1.0, got %v", got)
	}

	table.SetDefault("b1", 5.0)
	if got := table.Get("b1", 7); got != 5.0 {
		t.Fatalf("expected default weight 5.0, got %v", got)
	}

	table.Set("b1", 7, 9.0)
	if got := table.Get("b1", 7); got != 9.0 {
		t.Fatalf("expected state-conditioned weight 9.0, got %v", got)
	}
	if got := table.Get("b1", 8); got != 5.0 {
		t.Fatalf("expected default weight for a different state, got %v", got)
	}
}

func TestWeightTableAdjustClamps(t *testing.T) {
	table := NewWeightTable()
	table.Set("b1", 1, 2.0)

	table.Adjust("b1", 1, 10.0, 5.0)
	if got := table.Get("b1", 1); got != 5.0 {
		t.Fatalf("expected clamp to max 5.0, got %v", got)
	}

	table.Adjust("b1", 1, -1.0, 5.0)
	if got := table.Get("b1", 1); got != 0.0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
}

func TestWeightTableSkipZeroes(t *testing.T) {
	table := NewWeightTable()
	table.SetDefault("b1", 3.0)
	table.Skip("b1", 2)
	if got := table.Get("b1", 2); got != 0 {
		t.Fatalf("expected skipped cell to be 0, got %v", got)
	}
	if got := table.Get("b1", 3); got != 3.0 {
		t.Fatalf("expected a different state to be unaffected, got %v", got)
	}
}

func TestWeightTableNormalize(t *testing.T) {
	table := NewWeightTable()
	table.Set("a", 1, 1.0)
	table.Set("b", 1, 3.0)

	table.Normalize([]string{"a", "b"}, 1, 10.0)

	if got := table.Get("a", 1); got != 2.5 {
		t.Fatalf("expected a=2.5, got %v", got)
	}
	if got := table.Get("b", 1); got != 7.5 {
		t.Fatalf("expected b=7.5, got %v", got)
	}
}

func TestWeightTableDecayAll(t *testing.T) {
	table := NewWeightTable()
	table.Set("a", 1, 4.0)
	table.DecayAll(0.5)
	if got := table.Get("a", 1); got != 2.0 {
		t.Fatalf("expected decayed weight 2.0, got %v", got)
	}
}

func TestWeightTableClampMinPreservesZero(t *testing.T) {
	table := NewWeightTable()
	table.Set("low", 1, 0.02)
	table.Set("unreachable", 1, 0.0)

	table.ClampMin(0.1)

	if got := table.Get("low", 1); got != 0.1 {
		t.Fatalf("expected low weight raised to floor 0.1, got %v", got)
	}
	if got := table.Get("unreachable", 1); got != 0.0 {
		t.Fatalf("expected zeroed weight to stay zero, got %v", got)
	}
}

func TestWeightTableSnapshotAndLoadCellRoundTrip(t *testing.T) {
	table := NewWeightTable()
	table.Set("a", 1, 0.5)
	table.Set("b", 2, 0.75)

	keys := table.Snapshot()
	if len(keys) != 2 {
		t.Fatalf("expected 2 cells in snapshot, got %d", len(keys))
	}

	restored := NewWeightTable()
	for _, k := range keys {
		restored.LoadCell(k.BranchID, k.ModelStateHash, table.Get(k.BranchID, k.ModelStateHash))
	}

	if got := restored.Get("a", 1); got != 0.5 {
		t.Fatalf("expected restored a=0.5, got %v", got)
	}
	if got := restored.Get("b", 2); got != 0.75 {
		t.Fatalf("expected restored b=0.75, got %v", got)
	}
}

func TestWeightTableSnapshotExcludesUnwrittenDefaults(t *testing.T) {
	table := NewWeightTable()
	table.SetDefault("a", 2.0)

	if got := table.Snapshot(); len(got) != 0 {
		t.Fatalf("expected an empty snapshot when no cell was ever written, got %+v", got)
	}
}
