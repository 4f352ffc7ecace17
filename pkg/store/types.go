package store

import (
	"context"
	"database/sql"
	"time"
)

// WeightCellRecord is one persisted (branch, abstract-state) weight table
// cell for a given campaign content hash.
type WeightCellRecord struct {
	ContentHash    string  `json:"content_hash"`
	BranchID       string  `json:"branch_id"`
	ModelStateHash uint64  `json:"model_state_hash"`
	Weight         float64 `json:"weight"`
}

// ProofRecord is a persisted unreachability proof: a static walk or a
// solver UNSAT result (named by Kind) showed that a branch can never fire
// in a given abstract state, so its weight is permanently pinned to zero.
type ProofRecord struct {
	ContentHash    string    `json:"content_hash"`
	BranchID       string    `json:"branch_id"`
	ModelStateHash uint64    `json:"model_state_hash"`
	Kind           string    `json:"kind"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}

// HotRegionRecord tracks an abstract state that was visited just before a
// finding fired, with a running count of how often it preceded one. The
// coordinator consults these to prioritize regression exploration at the
// start of the next campaign against the same content hash.
type HotRegionRecord struct {
	ID                int64     `json:"id"`
	ContentHash       string    `json:"content_hash"`
	AbstractStateHash uint64    `json:"abstract_state_hash"`
	FindingKind       string    `json:"finding_kind"`
	HitCount          int64     `json:"hit_count"`
	LastSeenAt        time.Time `json:"last_seen_at"`
}

// CapsuleRecord is a persisted replay capsule, keyed by the finding ID it
// reproduces. CapsuleJSON holds the marshaled findings.Capsule; the store
// package never unmarshals it, it only moves bytes, so it carries no
// dependency on the findings package's types.
type CapsuleRecord struct {
	ID          string    `json:"id"`
	ContentHash string    `json:"content_hash"`
	Kind        string    `json:"kind"`
	Property    string    `json:"property"`
	Detail      string    `json:"detail"`
	Seq         uint64    `json:"seq"`
	CapsuleJSON []byte    `json:"capsule_json"`
	CreatedAt   time.Time `json:"created_at"`
}

// CampaignState is the lifecycle state of one compile/run cycle, as
// reported by the `status` tool surface operation.
type CampaignState string

const (
	CampaignPending   CampaignState = "pending"
	CampaignRunning   CampaignState = "running"
	CampaignCompleted CampaignState = "completed"
	CampaignAborted   CampaignState = "aborted"
	CampaignFailed    CampaignState = "failed"
)

// Campaign is the persisted record of one compile/run cycle against a
// content hash, giving `status`/`findings` something to query after the
// foreground process that ran it has exited.
type Campaign struct {
	ID               string        `json:"id"`
	ContentHash      string        `json:"content_hash"`
	State            CampaignState `json:"state"`
	IterationsDone   int64         `json:"iterations_done"`
	IterationsTotal  int64         `json:"iterations_total"`
	CoveragePercent  float64       `json:"coverage_percent"`
	FindingsCount    int64         `json:"findings_count"`
	Error            *string       `json:"error,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
}

// Store is the persistence interface for cross-campaign memory. Every
// operation is scoped to a campaign content hash; nothing here knows about
// a *running* campaign, only what a finished one leaves behind for the next
// run against the same compiled spec.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Weight table snapshot
	UpsertWeightCell(ctx context.Context, cell WeightCellRecord) error
	ListWeightCells(ctx context.Context, contentHash string) ([]WeightCellRecord, error)

	// Unreachability proofs
	RecordProof(ctx context.Context, proof ProofRecord) error
	ListProofs(ctx context.Context, contentHash string) ([]ProofRecord, error)

	// Hot regions
	BumpHotRegion(ctx context.Context, contentHash string, abstractStateHash uint64, findingKind string) error
	ListHotRegions(ctx context.Context, contentHash string, limit int) ([]HotRegionRecord, error)

	// Replay capsules
	SaveCapsule(ctx context.Context, capsule CapsuleRecord) error
	ListCapsules(ctx context.Context, contentHash string, limit int) ([]CapsuleRecord, error)
	GetCapsule(ctx context.Context, id string) (*CapsuleRecord, error)

	// Campaigns
	CreateCampaign(ctx context.Context, c Campaign) error
	UpdateCampaignProgress(ctx context.Context, id string, iterationsDone int64, coveragePercent float64, findingsCount int64) error
	FinishCampaign(ctx context.Context, id string, state CampaignState, errMsg *string) error
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	ListCampaigns(ctx context.Context, contentHash string, limit int) ([]Campaign, error)

	// DeleteCampaign purges every section for a content hash, e.g. when a
	// spec is recompiled with `--fresh` and prior memory should not seed it.
	DeleteCampaign(ctx context.Context, contentHash string) error

	HealthCheck(ctx context.Context) error
}
