package run

import (
	"fmt"

	"github.com/iamshnoo/soc-bias/domain/core"
)

// Manifest describes everything needed to replay a run.
// It is written next to the results before any test executes.
type Manifest struct {
	RunID          core.RunID        `json:"run_id"`
	ExperimentID   core.ExperimentID `json:"experiment_id"`
	EmbeddingModel string            `json:"embedding_model"`
	Seed           int64             `json:"seed"`
	NSamples       int               `json:"n_samples"`
	Parametric     bool              `json:"parametric"`
	Tests          []string          `json:"tests"`
	Fingerprint    RunFingerprint    `json:"fingerprint"`
	CreatedAt      core.Timestamp    `json:"created_at"`
}

// NewManifest creates a manifest for a resolved test list
func NewManifest(
	runID core.RunID,
	experimentID core.ExperimentID,
	model string,
	seed int64,
	nSamples int,
	parametric bool,
	tests []string,
) *Manifest {
	fingerprint := NewRunFingerprint(experimentID, model, core.ComputeTestListHash(tests), seed, nSamples, parametric)

	return &Manifest{
		RunID:          runID,
		ExperimentID:   experimentID,
		EmbeddingModel: model,
		Seed:           seed,
		NSamples:       nSamples,
		Parametric:     parametric,
		Tests:          append([]string(nil), tests...),
		Fingerprint:    fingerprint,
		CreatedAt:      core.Now(),
	}
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return fmt.Errorf("run manifest: run_id cannot be empty")
	}
	if m.ExperimentID == "" {
		return fmt.Errorf("run manifest: experiment_id cannot be empty")
	}
	if m.EmbeddingModel == "" {
		return fmt.Errorf("run manifest: embedding_model cannot be empty")
	}
	if !m.Parametric && m.NSamples < 1 {
		return fmt.Errorf("run manifest: n_samples must be positive, got %d", m.NSamples)
	}
	return nil
}
