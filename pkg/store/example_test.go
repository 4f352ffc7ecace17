package store_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ajhcs/beacon/pkg/store"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new store.
func ExampleNewSQLiteStore() {
	s, err := store.NewSQLiteStore(store.Config{Path: ":memory:"})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		log.Fatal(err)
	}
	if err := s.Migrate(ctx); err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	fmt.Println("store initialized successfully")
	// Output: store initialized successfully
}

// ExampleSQLiteStore_UpsertWeightCell demonstrates seeding a weight table
// snapshot for reuse at the next campaign against the same content hash.
func ExampleSQLiteStore_UpsertWeightCell() {
	s, _ := store.NewSQLiteStore(store.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = s.Init(ctx)
	_ = s.Migrate(ctx)
	defer s.Close()

	cell := store.WeightCellRecord{
		ContentHash:    "spec-abc123",
		BranchID:       "withdraw.alt.insufficient_funds",
		ModelStateHash: 9182736451,
		Weight:         0.85,
	}
	if err := s.UpsertWeightCell(ctx, cell); err != nil {
		log.Fatal(err)
	}

	cells, err := s.ListWeightCells(ctx, "spec-abc123")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("cells: %d, weight: %.2f\n", len(cells), cells[0].Weight)
	// Output: cells: 1, weight: 0.85
}

// ExampleSQLiteStore_BumpHotRegion demonstrates tracking an abstract state
// that preceded a finding, for regression priority at the next campaign.
func ExampleSQLiteStore_BumpHotRegion() {
	s, _ := store.NewSQLiteStore(store.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = s.Init(ctx)
	_ = s.Migrate(ctx)
	defer s.Close()

	_ = s.BumpHotRegion(ctx, "spec-abc123", 555, "guest_crash")
	_ = s.BumpHotRegion(ctx, "spec-abc123", 555, "guest_crash")

	regions, err := s.ListHotRegions(ctx, "spec-abc123", 5)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("hit count: %d\n", regions[0].HitCount)
	// Output: hit count: 2
}

// ExampleSQLiteStore_SaveCapsule demonstrates persisting a replay capsule
// for regression priority at the next campaign's start.
func ExampleSQLiteStore_SaveCapsule() {
	s, _ := store.NewSQLiteStore(store.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = s.Init(ctx)
	_ = s.Migrate(ctx)
	defer s.Close()

	capsule := store.CapsuleRecord{
		ID:          "finding-001",
		ContentHash: "spec-abc123",
		Kind:        "guest_crash",
		Detail:      "trap: division by zero",
		Seq:         1,
		CapsuleJSON: []byte(`{"prefix":[]}`),
		CreatedAt:   time.Now(),
	}
	if err := s.SaveCapsule(ctx, capsule); err != nil {
		log.Fatal(err)
	}

	got, err := s.GetCapsule(ctx, "finding-001")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("capsule kind: %s, detail: %s\n", got.Kind, got.Detail)
	// Output: capsule kind: guest_crash, detail: trap: division by zero
}
