package run

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/domain/weat"
)

// Report is the output of one run: its manifest and one entry per test in
// natural-sort order.
type Report struct {
	Manifest *Manifest   `json:"manifest"`
	Entries  []weat.Entry `json:"entries"`
}

// Results returns the successful results of the run
func (r *Report) Results() []weat.TestResult {
	return weat.Results(r.Entries)
}

// Failures returns the failure markers of the run
func (r *Report) Failures() []weat.TestFailure {
	out := make([]weat.TestFailure, 0)
	for _, e := range r.Entries {
		if e.Failure != nil {
			out = append(out, *e.Failure)
		}
	}
	return out
}

// RunFingerprint ensures deterministic replay
type RunFingerprint struct {
	ExperimentID   core.ExperimentID `json:"experiment_id"`
	EmbeddingModel string            `json:"embedding_model"`
	TestListHash   core.Hash         `json:"test_list_hash"`
	Seed           int64             `json:"seed"`
	NSamples       int               `json:"n_samples"`
	Parametric     bool              `json:"parametric"`
	Fingerprint    core.Hash         `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(experimentID core.ExperimentID, model string, testListHash core.Hash,
	seed int64, nSamples int, parametric bool) RunFingerprint {

	fingerprint := computeRunFingerprint(experimentID, model, testListHash, seed, nSamples, parametric)

	return RunFingerprint{
		ExperimentID:   experimentID,
		EmbeddingModel: model,
		TestListHash:   testListHash,
		Seed:           seed,
		NSamples:       nSamples,
		Parametric:     parametric,
		Fingerprint:    fingerprint,
	}
}

// computeRunFingerprint generates deterministic hash from all determinism parameters
func computeRunFingerprint(experimentID core.ExperimentID, model string, testListHash core.Hash,
	seed int64, nSamples int, parametric bool) core.Hash {

	data := fmt.Sprintf("experiment:%s|model:%s|tests:%s|seed:%d|n_samples:%d|parametric:%t",
		experimentID, strings.ToLower(model), testListHash, seed, nSamples, parametric)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}
