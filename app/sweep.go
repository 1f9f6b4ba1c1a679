package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iamshnoo/soc-bias/adapters/embedding"
	"github.com/iamshnoo/soc-bias/adapters/results"
	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/domain/run"
	"github.com/iamshnoo/soc-bias/internal"
	"github.com/iamshnoo/soc-bias/internal/metrics"
	"github.com/iamshnoo/soc-bias/ports"
)

// ProviderFactory loads the embedding provider for a model selector
type ProviderFactory func(ctx context.Context, model string) (ports.EmbeddingProvider, error)

// Naming derives experiment ids the way result files are named
type Naming struct {
	Suite    string
	Mode     string
	Name     string // overrides the default "<suite>_all_<mode>_<model>"
	BiasType string
	SeedInID bool
}

// ExperimentID returns the id for model. A configured name is suffixed with
// the model when several models share it.
func (n Naming) ExperimentID(model string, seed int64, shared bool) core.ExperimentID {
	name := n.Name
	switch {
	case name == "":
		name = run.DefaultExperimentName(n.Suite, n.Mode, model)
	case shared:
		name += "_" + model
	}
	var seedPtr *int64
	if n.SeedInID {
		seedPtr = &seed
	}
	return run.ExperimentID(name, n.BiasType, seedPtr)
}

// SweepService runs the same tests against several models. Each model gets
// its own provider, runner and random state.
type SweepService struct {
	loader      ports.TestLoader
	providers   ProviderFactory
	sinks       []ports.ResultSink
	recorder    *metrics.Recorder
	concurrency int
	logger      *internal.Logger
}

// SweepRequest defines the inputs of a sweep
type SweepRequest struct {
	Models     []string
	Tests      []string
	NSamples   int
	Parametric bool
	Seed       int64
	Naming     Naming
}

// NewSweepService creates a sweep service. concurrency bounds how many
// models run at once.
func NewSweepService(loader ports.TestLoader, providers ProviderFactory, sinks []ports.ResultSink,
	recorder *metrics.Recorder, concurrency int, logger *internal.Logger) *SweepService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SweepService{
		loader:      loader,
		providers:   providers,
		sinks:       sinks,
		recorder:    recorder,
		concurrency: concurrency,
		logger:      logger.OrDefault().With("sweep"),
	}
}

// Run executes one run per model and writes each report to every sink.
// Reports are returned in model order. Every model selector is checked
// before the first test runs; after that the first error cancels the
// remaining runs.
func (s *SweepService) Run(ctx context.Context, req SweepRequest) ([]*run.Report, error) {
	if len(req.Models) == 0 {
		return nil, fmt.Errorf("no embedding models requested")
	}
	for _, model := range req.Models {
		if _, err := embedding.Validate(model); err != nil {
			return nil, err
		}
	}

	reports := make([]*run.Report, len(req.Models))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, model := range req.Models {
		g.Go(func() error {
			report, err := s.runModel(gctx, model, req, len(req.Models) > 1)
			mu.Lock()
			reports[i] = report
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()

	out := make([]*run.Report, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, err
}

func (s *SweepService) runModel(ctx context.Context, model string, req SweepRequest, shared bool) (*run.Report, error) {
	start := time.Now()
	provider, err := s.providers(ctx, model)
	if err != nil {
		return nil, err
	}
	s.recorder.RecordModelLoad(provider.Name(), time.Since(start))

	runner := NewSEATRunner(s.loader, provider, s.recorder, s.logger)
	report, err := runner.Run(ctx, RunRequest{
		ExperimentID: req.Naming.ExperimentID(provider.Name(), req.Seed, shared),
		Tests:        req.Tests,
		NSamples:     req.NSamples,
		Parametric:   req.Parametric,
		Seed:         req.Seed,
	})
	if report != nil {
		// partial reports are written too
		if werr := results.WriteAll(context.WithoutCancel(ctx), s.sinks, report); werr != nil && err == nil {
			err = werr
		}
	}
	return report, err
}
