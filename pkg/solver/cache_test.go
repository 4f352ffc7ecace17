package solver

import (
	"testing"

	"github.com/ajhcs/beacon/pkg/typecheck"
)

func TestCacheUnsatRoundTrip(t *testing.T) {
	c, err := NewCache()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if unsat, err := c.IsUnsat("a,b"); err != nil || unsat {
		t.Fatalf("expected unmarked key to report unsat=false, got %v err=%v", unsat, err)
	}
	if err := c.MarkUnsat("a,b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unsat, err := c.IsUnsat("a,b"); err != nil || !unsat {
		t.Fatalf("expected marked key to report unsat=true, got %v err=%v", unsat, err)
	}
}

func TestCacheVectorsRoundTrip(t *testing.T) {
	c, err := NewCache()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	vectors := []TestVector{{Assignments: map[string]typecheck.Value{
		"role": typecheck.StringValue("admin"),
		"auth": typecheck.BoolValue(true),
	}}}

	if err := c.PutVectors("role_x_auth", vectors); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, found, err := c.GetVectors("role_x_auth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected vectors to be found")
	}
	if len(got) != 1 || got[0].Assignments["role"].S != "admin" {
		t.Errorf("expected round-tripped vector, got %+v", got)
	}
}

func TestCacheGetVectorsMissing(t *testing.T) {
	c, err := NewCache()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	_, found, err := c.GetVectors("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected not found for a missing key")
	}
}
