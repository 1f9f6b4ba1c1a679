package migration

import (
	"context"

	"github.com/iamshnoo/soc-bias/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order.
// Every statement is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create seat_runs table")
	}

	if err := r.createResultsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create seat_results table")
	}

	if err := r.createFailuresTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create seat_failures table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS seat_runs (
			run_id TEXT PRIMARY KEY,
			experiment_id TEXT NOT NULL,
			embedding_model VARCHAR(50) NOT NULL,
			seed BIGINT NOT NULL,
			n_samples INTEGER NOT NULL,
			parametric BOOLEAN NOT NULL DEFAULT false,
			tests JSONB NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createResultsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS seat_results (
			run_id TEXT NOT NULL REFERENCES seat_runs(run_id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			experiment_id TEXT NOT NULL,
			seed BIGINT NOT NULL,
			embedding_model VARCHAR(50) NOT NULL,
			test_id TEXT NOT NULL,
			p_value DOUBLE PRECISION NOT NULL,
			effect_size DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, position)
		)
	`)
	return err
}

func (r *MigrationRunner) createFailuresTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS seat_failures (
			run_id TEXT NOT NULL REFERENCES seat_runs(run_id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			test_id TEXT NOT NULL,
			error_kind VARCHAR(50) NOT NULL,
			error_message TEXT,
			PRIMARY KEY (run_id, position)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_experiment ON seat_runs(experiment_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_results_experiment ON seat_results(experiment_id)",
		"CREATE INDEX IF NOT EXISTS idx_results_test ON seat_results(test_id)",
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return err
		}
	}

	return nil
}
