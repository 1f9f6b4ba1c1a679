package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/domain/run"
	"github.com/iamshnoo/soc-bias/domain/weat"
	"github.com/iamshnoo/soc-bias/internal/errors"
	"github.com/iamshnoo/soc-bias/internal/migration"
	"github.com/iamshnoo/soc-bias/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ResultRepositoryImpl implements ResultRepository for PostgreSQL
type ResultRepositoryImpl struct {
	db *sqlx.DB
}

var _ ports.ResultRepository = (*ResultRepositoryImpl)(nil)

// Connect opens a connection pool and brings the schema up to date
func Connect(ctx context.Context, url string, maxConns int) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}
	return db, nil
}

// NewResultRepository creates a new PostgreSQL result repository
func NewResultRepository(db *sqlx.DB) *ResultRepositoryImpl {
	return &ResultRepositoryImpl{db: db}
}

func (r *ResultRepositoryImpl) Name() string { return "postgres" }

// Write stores the manifest and every entry of a report in one transaction
func (r *ResultRepositoryImpl) Write(ctx context.Context, report *run.Report) error {
	if report == nil || report.Manifest == nil {
		return errors.ValidationError("report has no manifest")
	}
	m := report.Manifest
	tests, err := json.Marshal(m.Tests)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO seat_runs (run_id, experiment_id, embedding_model, seed, n_samples, parametric, tests, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, m.RunID.String(), m.ExperimentID.String(), m.EmbeddingModel, m.Seed, m.NSamples, m.Parametric,
		tests, string(m.Fingerprint.Fingerprint), m.CreatedAt.Time())
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}

	for i, e := range report.Entries {
		switch {
		case e.Result != nil:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO seat_results (run_id, position, experiment_id, seed, embedding_model, test_id, p_value, effect_size)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, m.RunID.String(), i, e.Result.ExperimentID, e.Result.Seed, e.Result.EmbeddingModel,
				e.Result.TestID, e.Result.PValue, e.Result.EffectSize)
		case e.Failure != nil:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO seat_failures (run_id, position, test_id, error_kind, error_message)
				VALUES ($1, $2, $3, $4, $5)
			`, m.RunID.String(), i, e.Failure.TestID, e.Failure.Kind, e.Failure.Message)
		}
		if err != nil {
			return errors.WithCode(errors.CodeDatabaseError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	return nil
}

// ListResults returns the results of the latest run of an experiment in test
// order. A run whose tests all failed yields an empty list.
func (r *ResultRepositoryImpl) ListResults(ctx context.Context, experimentID core.ExperimentID) ([]weat.TestResult, error) {
	var runID string
	err := r.db.GetContext(ctx, &runID, `
		SELECT run_id FROM seat_runs
		WHERE experiment_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, experimentID.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("experiment " + experimentID.String())
	}
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}

	results := make([]weat.TestResult, 0)
	err = r.db.SelectContext(ctx, &results, `
		SELECT experiment_id, seed, embedding_model, test_id, p_value, effect_size
		FROM seat_results
		WHERE run_id = $1
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}
	return results, nil
}

type experimentRow struct {
	ports.ExperimentSummary
	LastRunAt time.Time `db:"last_run_at"`
}

// ListExperiments summarizes the most recently run experiments
func (r *ResultRepositoryImpl) ListExperiments(ctx context.Context, limit int) ([]ports.ExperimentSummary, error) {
	query := `
		SELECT DISTINCT ON (sr.experiment_id)
			sr.experiment_id,
			sr.embedding_model,
			sr.seed,
			(SELECT COUNT(*) FROM seat_results res WHERE res.run_id = sr.run_id) AS tests,
			(SELECT COUNT(*) FROM seat_failures f WHERE f.run_id = sr.run_id) AS failures,
			sr.created_at AS last_run_at
		FROM seat_runs sr
		ORDER BY sr.experiment_id, sr.created_at DESC
	`
	query = `SELECT * FROM (` + query + `) latest ORDER BY last_run_at DESC`

	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var rows []experimentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}

	summaries := make([]ports.ExperimentSummary, len(rows))
	for i, row := range rows {
		summaries[i] = row.ExperimentSummary
		summaries[i].LastRunAt = core.NewTimestamp(row.LastRunAt)
	}
	return summaries, nil
}
