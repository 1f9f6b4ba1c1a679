package container

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"

	"github.com/iamshnoo/soc-bias/adapters/dataset"
	"github.com/iamshnoo/soc-bias/adapters/embedding"
	"github.com/iamshnoo/soc-bias/adapters/postgres"
	"github.com/iamshnoo/soc-bias/adapters/results"
	"github.com/iamshnoo/soc-bias/app"
	"github.com/iamshnoo/soc-bias/internal"
	"github.com/iamshnoo/soc-bias/internal/config"
	"github.com/iamshnoo/soc-bias/internal/metrics"
	"github.com/iamshnoo/soc-bias/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config   *config.Config
	Logger   *internal.Logger
	Recorder *metrics.Recorder

	// Infrastructure
	DB *sqlx.DB

	// Data access
	Loader     *dataset.DirLoader
	Sinks      []ports.ResultSink
	JSON       *results.JSONWriter
	ResultRepo ports.ResultRepository

	providers *ProviderCache
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	logger = logger.OrDefault()

	sinks, err := results.NewSinks(cfg.Output.Formats, cfg.ResultsDir(), logger)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Recorder: metrics.NewRecorder(),
		Loader:   dataset.NewDirLoader(cfg.DataDir(), logger),
		Sinks:    sinks,
		JSON:     results.NewJSONWriter(cfg.ResultsDir(), logger),
	}
	c.providers = NewProviderCache(func(ctx context.Context, model string) (ports.EmbeddingProvider, error) {
		return embedding.New(ctx, model, c.EmbeddingOptions(), logger)
	})

	return c, nil
}

// InitWithDatabase connects to the configured database and adds it as a
// result sink. It does nothing when no database URL is configured.
func (c *Container) InitWithDatabase(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		return nil
	}

	db, err := postgres.Connect(ctx, c.Config.Database.URL, c.Config.Database.MaxConnections)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	c.DB = db

	repo := postgres.NewResultRepository(db)
	c.ResultRepo = repo
	c.Sinks = append(c.Sinks, repo)

	c.Logger.Info("result database connected")
	return nil
}

// EmbeddingOptions maps the configuration onto provider options
func (c *Container) EmbeddingOptions() embedding.Options {
	cfg := c.Config
	return embedding.Options{
		GloVePath:       cfg.GloVePath(),
		MaxWords:        cfg.Embeddings.MaxWords,
		FastTextPath:    cfg.FastTextPath(),
		ELMoEndpoint:    cfg.Embeddings.ELMo.Endpoint,
		ELMoVectorsPath: cfg.Embeddings.ELMo.VectorsPath,
		ELMoLayer:       cfg.Embeddings.ELMo.Layer,
		ELMoDimension:   cfg.Embeddings.ELMo.Dimension,
		ELMoToken:       cfg.Embeddings.ELMo.Token,
		ELMoTimeout:     cfg.Embeddings.ELMo.Timeout,
	}
}

// Providers returns the shared provider cache
func (c *Container) Providers() *ProviderCache {
	return c.providers
}

// Sweep builds a sweep service writing to every configured sink
func (c *Container) Sweep() *app.SweepService {
	return app.NewSweepService(c.Loader, c.providers.Get, c.Sinks, c.Recorder, c.Config.Run.Concurrency, c.Logger)
}

// Naming returns the experiment naming of the configured run
func (c *Container) Naming() app.Naming {
	return app.Naming{
		Suite:    c.Config.Run.Suite,
		Mode:     c.Config.Run.Mode,
		Name:     c.Config.Run.ExperimentName,
		BiasType: c.Config.Run.BiasType,
		SeedInID: c.Config.Run.SeedInID,
	}
}

// Close releases the database connection
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// ProviderCache loads each embedding model at most once. Concurrent
// requests for a model that is still loading wait for the same load.
type ProviderCache struct {
	load   app.ProviderFactory
	group  singleflight.Group
	mu     sync.RWMutex
	loaded map[string]ports.EmbeddingProvider
}

// NewProviderCache creates a cache in front of load
func NewProviderCache(load app.ProviderFactory) *ProviderCache {
	return &ProviderCache{load: load, loaded: make(map[string]ports.EmbeddingProvider)}
}

// Get returns the provider for model, loading it on first use. Failed loads
// are not cached.
func (p *ProviderCache) Get(ctx context.Context, model string) (ports.EmbeddingProvider, error) {
	if _, err := embedding.Validate(model); err != nil {
		return nil, err
	}
	model = strings.ToLower(strings.TrimSpace(model))

	p.mu.RLock()
	provider, ok := p.loaded[model]
	p.mu.RUnlock()
	if ok {
		return provider, nil
	}

	v, err, _ := p.group.Do(model, func() (interface{}, error) {
		p.mu.RLock()
		cached, ok := p.loaded[model]
		p.mu.RUnlock()
		if ok {
			return cached, nil
		}

		// detached so one caller giving up does not fail the others
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Minute)
		defer cancel()
		loaded, err := p.load(loadCtx, model)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.loaded[model] = loaded
		p.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(ports.EmbeddingProvider), nil
}

// Loaded lists the models currently held in memory
func (p *ProviderCache) Loaded() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.loaded))
	for name := range p.loaded {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
