package model

import (
	"encoding/json"
	"testing"

	"github.com/ajhcs/beacon/pkg/ir"
	"github.com/ajhcs/beacon/pkg/typecheck"
)

func TestApplyEffectCreatesAndSets(t *testing.T) {
	spec := &ir.Spec{}
	k := NewKernel(spec, nil)
	actor := k.Create("User")

	effect := &ir.Effect{
		Creates: &ir.CreateEffect{Entity: "Document", Assign: "doc"},
		Sets: []ir.EffectSet{
			{Target: []string{"doc", "owner_id"}, Value: json.RawMessage(`["field", "actor", "id"]`)},
			{Target: []string{"doc", "visibility"}, Value: json.RawMessage(`"private"`)},
		},
	}

	if err := k.Set(actor, "id", typecheck.StringValue("u-1")); err != nil {
		t.Fatal(err)
	}

	if err := k.ApplyEffect(effect, actor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	docs := k.State().Instances("Document")
	if len(docs) != 1 {
		t.Fatalf("expected 1 Document instance, got %d", len(docs))
	}

	owner, ok := k.State().Field(docs[0], "owner_id")
	if !ok || owner.S != "u-1" {
		t.Errorf("expected owner_id to be copied from actor.id, got %+v", owner)
	}

	visibility, ok := k.State().Field(docs[0], "visibility")
	if !ok || visibility.S != "private" {
		t.Errorf("expected visibility=private, got %+v", visibility)
	}
}

func TestApplyEffectUnresolvedFrameName(t *testing.T) {
	spec := &ir.Spec{}
	k := NewKernel(spec, nil)
	actor := k.Create("User")

	effect := &ir.Effect{
		Sets: []ir.EffectSet{
			{Target: []string{"nonexistent", "field"}, Value: json.RawMessage(`1`)},
		},
	}

	if err := k.ApplyEffect(effect, actor); err == nil {
		t.Error("expected an error for an unresolved frame name")
	}
}
