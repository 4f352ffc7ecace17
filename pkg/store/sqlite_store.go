package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using SQLite. One database file holds the
// cross-campaign memory for every content hash seen so far; rows are
// partitioned by content_hash, not by file, since a single harness
// instance typically cycles through many compiled specs over its
// lifetime.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite-backed store. Call Init then Migrate
// before using it.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{path: cfg.Path}, nil
}

// Init opens the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs every pending migration. Unknown future sections in an
// older binary's schema are never dropped by this: migrations only add.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func (s *SQLiteStore) CommitTx(tx *sql.Tx) error   { return tx.Commit() }
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error { return tx.Rollback() }

// UpsertWeightCell writes the decayed weight for one (branch, abstract
// state) cell, replacing any prior value for the same campaign.
func (s *SQLiteStore) UpsertWeightCell(ctx context.Context, cell WeightCellRecord) error {
	query := `
		INSERT INTO weight_cells (content_hash, branch_id, model_state_hash, weight)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(content_hash, branch_id, model_state_hash) DO UPDATE SET
			weight = excluded.weight
	`
	_, err := s.db.ExecContext(ctx, query, cell.ContentHash, cell.BranchID, cell.ModelStateHash, cell.Weight)
	if err != nil {
		return fmt.Errorf("failed to upsert weight cell: %w", err)
	}
	return nil
}

// ListWeightCells returns every persisted weight cell for a content hash,
// the seed for the next campaign's weight table against the same spec.
func (s *SQLiteStore) ListWeightCells(ctx context.Context, contentHash string) ([]WeightCellRecord, error) {
	query := `SELECT content_hash, branch_id, model_state_hash, weight FROM weight_cells WHERE content_hash = ?`
	rows, err := s.db.QueryContext(ctx, query, contentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to list weight cells: %w", err)
	}
	defer rows.Close()

	cells := []WeightCellRecord{}
	for rows.Next() {
		var c WeightCellRecord
		if err := rows.Scan(&c.ContentHash, &c.BranchID, &c.ModelStateHash, &c.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan weight cell: %w", err)
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weight cells: %w", err)
	}
	return cells, nil
}

// RecordProof persists an unreachability proof. Proofs are never revoked
// by a later run; a cell that is provably unreachable stays that way for
// the life of the content hash.
func (s *SQLiteStore) RecordProof(ctx context.Context, proof ProofRecord) error {
	query := `
		INSERT INTO unreachability_proofs (content_hash, branch_id, model_state_hash, kind, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash, branch_id, model_state_hash) DO UPDATE SET
			kind = excluded.kind,
			description = excluded.description
	`
	_, err := s.db.ExecContext(ctx, query, proof.ContentHash, proof.BranchID, proof.ModelStateHash, proof.Kind, proof.Description, proof.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record proof: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListProofs(ctx context.Context, contentHash string) ([]ProofRecord, error) {
	query := `
		SELECT content_hash, branch_id, model_state_hash, kind, description, created_at
		FROM unreachability_proofs WHERE content_hash = ?
	`
	rows, err := s.db.QueryContext(ctx, query, contentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to list proofs: %w", err)
	}
	defer rows.Close()

	proofs := []ProofRecord{}
	for rows.Next() {
		var p ProofRecord
		if err := rows.Scan(&p.ContentHash, &p.BranchID, &p.ModelStateHash, &p.Kind, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan proof: %w", err)
		}
		proofs = append(proofs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating proofs: %w", err)
	}
	return proofs, nil
}

// BumpHotRegion increments the hit count for an abstract state that
// preceded a finding, inserting a fresh row the first time it's seen.
func (s *SQLiteStore) BumpHotRegion(ctx context.Context, contentHash string, abstractStateHash uint64, findingKind string) error {
	query := `
		INSERT INTO hot_regions (content_hash, abstract_state_hash, finding_kind, hit_count, last_seen_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(content_hash, abstract_state_hash, finding_kind) DO UPDATE SET
			hit_count = hit_count + 1,
			last_seen_at = excluded.last_seen_at
	`
	_, err := s.db.ExecContext(ctx, query, contentHash, abstractStateHash, findingKind, time.Now())
	if err != nil {
		return fmt.Errorf("failed to bump hot region: %w", err)
	}
	return nil
}

// ListHotRegions returns the hottest regions for a content hash, ordered
// by hit count descending, so the coordinator can seed the next
// campaign's exploration toward states that tend to precede findings.
func (s *SQLiteStore) ListHotRegions(ctx context.Context, contentHash string, limit int) ([]HotRegionRecord, error) {
	query := `
		SELECT id, content_hash, abstract_state_hash, finding_kind, hit_count, last_seen_at
		FROM hot_regions WHERE content_hash = ?
		ORDER BY hit_count DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, contentHash, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list hot regions: %w", err)
	}
	defer rows.Close()

	regions := []HotRegionRecord{}
	for rows.Next() {
		var r HotRegionRecord
		if err := rows.Scan(&r.ID, &r.ContentHash, &r.AbstractStateHash, &r.FindingKind, &r.HitCount, &r.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan hot region: %w", err)
		}
		regions = append(regions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hot regions: %w", err)
	}
	return regions, nil
}

// SaveCapsule persists a replay capsule for regression priority at the
// next campaign's start.
func (s *SQLiteStore) SaveCapsule(ctx context.Context, capsule CapsuleRecord) error {
	query := `
		INSERT INTO replay_capsules (id, content_hash, kind, property, detail, seq, capsule_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			capsule_json = excluded.capsule_json,
			seq = excluded.seq
	`
	_, err := s.db.ExecContext(ctx, query,
		capsule.ID, capsule.ContentHash, capsule.Kind, capsule.Property, capsule.Detail,
		capsule.Seq, capsule.CapsuleJSON, capsule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save capsule: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListCapsules(ctx context.Context, contentHash string, limit int) ([]CapsuleRecord, error) {
	query := `
		SELECT id, content_hash, kind, property, detail, seq, capsule_json, created_at
		FROM replay_capsules WHERE content_hash = ?
		ORDER BY seq ASC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, contentHash, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list capsules: %w", err)
	}
	defer rows.Close()

	capsules := []CapsuleRecord{}
	for rows.Next() {
		var c CapsuleRecord
		if err := rows.Scan(&c.ID, &c.ContentHash, &c.Kind, &c.Property, &c.Detail, &c.Seq, &c.CapsuleJSON, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan capsule: %w", err)
		}
		capsules = append(capsules, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating capsules: %w", err)
	}
	return capsules, nil
}

func (s *SQLiteStore) GetCapsule(ctx context.Context, id string) (*CapsuleRecord, error) {
	query := `
		SELECT id, content_hash, kind, property, detail, seq, capsule_json, created_at
		FROM replay_capsules WHERE id = ?
	`
	c := &CapsuleRecord{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.ContentHash, &c.Kind, &c.Property, &c.Detail, &c.Seq, &c.CapsuleJSON, &c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("capsule not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capsule: %w", err)
	}
	return c, nil
}

// CreateCampaign records the start of a new compile/run cycle.
func (s *SQLiteStore) CreateCampaign(ctx context.Context, c Campaign) error {
	query := `
		INSERT INTO campaigns (id, content_hash, state, iterations_done, iterations_total, coverage_percent, findings_count, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.ContentHash, c.State, c.IterationsDone, c.IterationsTotal,
		c.CoveragePercent, c.FindingsCount, c.Error, c.StartedAt, c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// UpdateCampaignProgress records how far a running campaign has gotten,
// so `status` reflects progress even mid-run.
func (s *SQLiteStore) UpdateCampaignProgress(ctx context.Context, id string, iterationsDone int64, coveragePercent float64, findingsCount int64) error {
	query := `
		UPDATE campaigns
		SET iterations_done = ?, coverage_percent = ?, findings_count = ?, state = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, iterationsDone, coveragePercent, findingsCount, CampaignRunning, id)
	if err != nil {
		return fmt.Errorf("failed to update campaign progress: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("campaign not found: %s", id)
	}
	return nil
}

// FinishCampaign marks a campaign as completed, aborted, or failed.
func (s *SQLiteStore) FinishCampaign(ctx context.Context, id string, state CampaignState, errMsg *string) error {
	query := `UPDATE campaigns SET state = ?, error = ?, completed_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, state, errMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to finish campaign: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("campaign not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	query := `
		SELECT id, content_hash, state, iterations_done, iterations_total, coverage_percent, findings_count, error, started_at, completed_at
		FROM campaigns WHERE id = ?
	`
	c := &Campaign{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.ContentHash, &c.State, &c.IterationsDone, &c.IterationsTotal,
		&c.CoveragePercent, &c.FindingsCount, &c.Error, &c.StartedAt, &c.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("campaign not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context, contentHash string, limit int) ([]Campaign, error) {
	query := `
		SELECT id, content_hash, state, iterations_done, iterations_total, coverage_percent, findings_count, error, started_at, completed_at
		FROM campaigns WHERE content_hash = ?
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, contentHash, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []Campaign{}
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(
			&c.ID, &c.ContentHash, &c.State, &c.IterationsDone, &c.IterationsTotal,
			&c.CoveragePercent, &c.FindingsCount, &c.Error, &c.StartedAt, &c.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}
	return campaigns, nil
}

// DeleteCampaign purges every section for a content hash.
func (s *SQLiteStore) DeleteCampaign(ctx context.Context, contentHash string) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, table := range []string{"weight_cells", "unreachability_proofs", "hot_regions", "replay_capsules", "campaigns"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE content_hash = ?", table), contentHash); err != nil {
			_ = s.RollbackTx(tx)
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	return s.CommitTx(tx)
}

// HealthCheck verifies the database connection is alive.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
