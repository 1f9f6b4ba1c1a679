package ports

import (
	"context"

	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/domain/run"
	"github.com/iamshnoo/soc-bias/domain/weat"
)

// ResultSink persists the report of a finished (or partially finished) run
type ResultSink interface {
	Name() string
	Write(ctx context.Context, report *run.Report) error
}

// ResultRepository is a queryable result store
type ResultRepository interface {
	ResultSink
	ListResults(ctx context.Context, experimentID core.ExperimentID) ([]weat.TestResult, error)
	ListExperiments(ctx context.Context, limit int) ([]ExperimentSummary, error)
}

// ExperimentSummary aggregates one experiment's stored results
type ExperimentSummary struct {
	ExperimentID   core.ExperimentID `json:"experiment_id" db:"experiment_id"`
	EmbeddingModel string            `json:"embedding_model" db:"embedding_model"`
	Seed           int64             `json:"seed" db:"seed"`
	Tests          int               `json:"tests" db:"tests"`
	Failures       int               `json:"failures" db:"failures"`
	LastRunAt      core.Timestamp    `json:"last_run_at" db:"-"`
}
