package model

import (
	"testing"

	"github.com/ajhcs/beacon/pkg/typecheck"
)

func TestStateCreateAndSet(t *testing.T) {
	s := New()
	s, id := s.Create("User")

	s, err := s.Set(id, "role", typecheck.StringValue("admin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, ok := s.Field(string(id), "role")
	if !ok {
		t.Fatal("expected field to resolve")
	}
	if v.S != "admin" {
		t.Errorf("got role %q, want admin", v.S)
	}
}

func TestStateForkDoesNotMutateParent(t *testing.T) {
	base := New()
	base, id := base.Create("User")
	base, err := base.Set(id, "authenticated", typecheck.BoolValue(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	forked, err := base.Set(id, "authenticated", typecheck.BoolValue(true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	baseVal, _ := base.Field(string(id), "authenticated")
	forkedVal, _ := forked.Field(string(id), "authenticated")

	if baseVal.B != false {
		t.Errorf("base state was mutated: got %v", baseVal.B)
	}
	if forkedVal.B != true {
		t.Errorf("forked state did not see its own write: got %v", forkedVal.B)
	}
}

func TestStateSetUnknownInstance(t *testing.T) {
	s := New()
	if _, err := s.Set(InstanceID("User#0"), "x", typecheck.IntValue(1)); err == nil {
		t.Error("expected error setting a field on a nonexistent instance")
	}
}

func TestStateInstancesAndEntityTypes(t *testing.T) {
	s := New()
	s, id1 := s.Create("User")
	s, id2 := s.Create("User")
	s, _ = s.Create("Document")

	users := s.Instances("User")
	if len(users) != 2 {
		t.Fatalf("expected 2 User instances, got %d", len(users))
	}

	types := s.EntityTypes()
	if len(types) != 2 {
		t.Fatalf("expected 2 entity types, got %d", len(types))
	}

	if id1.EntityType() != "User" || id2.EntityType() != "User" {
		t.Error("expected both instance ids to report entity type User")
	}
}
