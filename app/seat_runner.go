package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/iamshnoo/soc-bias/adapters/rng"
	"github.com/iamshnoo/soc-bias/adapters/stats/association"
	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/domain/run"
	"github.com/iamshnoo/soc-bias/domain/weat"
	"github.com/iamshnoo/soc-bias/internal"
	"github.com/iamshnoo/soc-bias/internal/errors"
	"github.com/iamshnoo/soc-bias/internal/metrics"
	"github.com/iamshnoo/soc-bias/ports"
)

// SEATRunner executes association tests against one embedding provider
type SEATRunner struct {
	loader   ports.TestLoader
	provider ports.EmbeddingProvider
	recorder *metrics.Recorder
	logger   *internal.Logger
}

// RunRequest defines the inputs of one run
type RunRequest struct {
	ExperimentID core.ExperimentID
	Tests        []string // empty runs every discovered test
	NSamples     int
	Parametric   bool
	Seed         int64
}

// NewSEATRunner creates a runner. recorder may be nil.
func NewSEATRunner(loader ports.TestLoader, provider ports.EmbeddingProvider, recorder *metrics.Recorder, logger *internal.Logger) *SEATRunner {
	return &SEATRunner{
		loader:   loader,
		provider: provider,
		recorder: recorder,
		logger:   logger.OrDefault().With("runner"),
	}
}

// Run executes the requested tests in order with a single random state
// seeded once from req.Seed. A test that fails is recorded as a failure
// entry and the run continues. If ctx is cancelled the run stops between
// tests and the partial report is returned with the context error.
func (r *SEATRunner) Run(ctx context.Context, req RunRequest) (report *run.Report, err error) {
	if req.ExperimentID == "" {
		return nil, errors.ValidationError("experiment id is required")
	}
	if req.NSamples <= 0 {
		req.NSamples = association.DefaultSamples
	}

	tests := req.Tests
	if len(tests) == 0 {
		tests, err = r.loader.Discover(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to discover tests")
		}
	}

	model := r.provider.Name()
	manifest := run.NewManifest(core.NewRunID(), req.ExperimentID, model, req.Seed, req.NSamples, req.Parametric, tests)
	if err := manifest.Validate(); err != nil {
		return nil, errors.WithCode(errors.CodeValidationError, err)
	}
	report = &run.Report{Manifest: manifest, Entries: make([]weat.Entry, 0, len(tests))}

	done := r.recorder.RunStarted(model)
	defer func() { done(err) }()

	r.logger.Info("run %s (%s): %d tests, model=%s seed=%d n_samples=%d parametric=%t",
		manifest.RunID, manifest.Fingerprint.Fingerprint.Short(), len(tests), model, req.Seed, req.NSamples, req.Parametric)

	estimator := association.NewEstimator(req.NSamples, req.Parametric, rng.NewSeeded(req.Seed))
	for _, id := range tests {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("run %s cancelled after %d of %d tests", manifest.RunID, len(report.Entries), len(tests))
			return report, err
		}

		start := time.Now()
		est, testErr := r.runTest(ctx, estimator, id)
		if testErr != nil && ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Entries = append(report.Entries, r.entry(req, id, est, testErr, time.Since(start)))
	}

	r.logger.Info("run %s finished: %d results, %d failures",
		manifest.RunID, len(report.Results()), len(report.Failures()))
	return report, nil
}

func (r *SEATRunner) entry(req RunRequest, id string, est association.Estimate, testErr error, elapsed time.Duration) weat.Entry {
	model := r.provider.Name()
	if testErr != nil {
		kind := core.FailureKind(testErr)
		r.logger.Warn("%s failed (%s): %v", id, kind, testErr)
		r.recorder.RecordFailure(model, kind, elapsed)
		return weat.Entry{Failure: &weat.TestFailure{
			ExperimentID:   req.ExperimentID.String(),
			Seed:           req.Seed,
			EmbeddingModel: model,
			TestID:         id,
			Kind:           kind,
			Message:        testErr.Error(),
		}}
	}

	r.logger.Info("%s: effect_size=%.4f p_value=%.4f (%s, %d samples) in %s",
		id, est.EffectSize, est.PValue, est.Method, est.Samples, elapsed.Round(time.Millisecond))
	r.recorder.RecordResult(model, id, est.EffectSize, elapsed)
	return weat.Entry{Result: &weat.TestResult{
		ExperimentID:   req.ExperimentID.String(),
		Seed:           req.Seed,
		EmbeddingModel: model,
		TestID:         id,
		PValue:         est.PValue,
		EffectSize:     est.EffectSize,
	}}
}

// runTest loads, encodes and estimates one test
func (r *SEATRunner) runTest(ctx context.Context, estimator *association.Estimator, id string) (association.Estimate, error) {
	test, err := r.loader.Load(ctx, id)
	if err != nil {
		return association.Estimate{}, err
	}
	if err := test.Validate(); err != nil {
		return association.Estimate{}, err
	}

	level := test.Level()
	r.logger.Debug("%s: encoding %s level inputs", id, level)

	sets := test.Sets()
	encoded := make([]*weat.EncodedSet, len(weat.SetKeys))
	for i, key := range weat.SetKeys {
		encoded[i], err = r.encode(ctx, key, sets[key].Inputs(level), level)
		if err != nil {
			return association.Estimate{}, err
		}
	}
	return estimator.Estimate(ctx, encoded[0], encoded[1], encoded[2], encoded[3])
}

// encode reduces one concept set to vectors. Any input the provider cannot
// represent fails the whole set.
func (r *SEATRunner) encode(ctx context.Context, name string, inputs []string, level weat.Level) (*weat.EncodedSet, error) {
	set := weat.NewEncodedSet(name, len(inputs))
	for _, input := range inputs {
		if _, seen := set.Vectors[input]; seen {
			continue
		}

		var vec []float64
		var err error
		if level == weat.LevelSentence {
			vec, err = r.provider.EncodeSentence(ctx, strings.Fields(input))
		} else {
			vec, err = r.provider.EncodeWord(ctx, input)
		}
		if err != nil {
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, core.NewEncodingFailure(name, input, err)
		}
		if dim := r.provider.Dimension(); dim > 0 && len(vec) != dim {
			return nil, fmt.Errorf("%s %q: %w", name, input, core.NewDimensionMismatchError(dim, len(vec)))
		}
		set.Add(input, vec)
	}
	return set, nil
}
