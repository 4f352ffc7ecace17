package findings

import (
	"testing"

	"github.com/ajhcs/beacon/pkg/coordinator"
	"github.com/ajhcs/beacon/pkg/model"
)

func TestNewCapsuleSlicesPrefixAtViolatingStep(t *testing.T) {
	empty := model.New()
	trace := &model.Trace{Entries: []model.TraceEntry{
		{Action: "a", Before: empty, Epoch: 0, Step: 0},
		{Action: "b", Before: empty, Epoch: 0, Step: 1},
		{Action: "c", Before: empty, Epoch: 1, Step: 2},
	}}

	capsule := NewCapsule("hash1", []int64{42}, trace, 1, nil)

	if len(capsule.Prefix) != 2 {
		t.Fatalf("expected a 2-entry prefix, got %d", len(capsule.Prefix))
	}
	if capsule.Prefix[len(capsule.Prefix)-1].Action != "b" {
		t.Fatalf("expected prefix to end at the violating step, got %+v", capsule.Prefix)
	}
	if capsule.SpecContentHash != "hash1" {
		t.Fatalf("expected spec content hash preserved, got %q", capsule.SpecContentHash)
	}
}

func TestNewCapsuleKeepsOnlyDirectivesUpToViolatingEpoch(t *testing.T) {
	trace := &model.Trace{Entries: []model.TraceEntry{
		{Action: "a", Epoch: 0, Step: 0},
		{Action: "b", Epoch: 1, Step: 1},
	}}

	directives := []coordinator.DirectiveEntry{
		{Epoch: 0},
		{Epoch: 1},
		{Epoch: 2},
	}

	capsule := NewCapsule("hash1", nil, trace, 1, directives)

	if len(capsule.DirectivesUpTo) != 2 {
		t.Fatalf("expected 2 directives at or before the violating epoch, got %d", len(capsule.DirectivesUpTo))
	}
}
