package container

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/internal/config"
	"github.com/iamshnoo/soc-bias/ports"
)

type namedProvider struct{ name string }

func (p namedProvider) Name() string   { return p.name }
func (p namedProvider) Dimension() int { return 1 }
func (p namedProvider) EncodeWord(ctx context.Context, token string) ([]float64, error) {
	return []float64{1}, nil
}
func (p namedProvider) EncodeSentence(ctx context.Context, tokens []string) ([]float64, error) {
	return []float64{1}, nil
}

func TestProviderCache_LoadsOnce(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	cache := NewProviderCache(func(ctx context.Context, model string) (ports.EmbeddingProvider, error) {
		loads.Add(1)
		<-release
		return namedProvider{name: model}, nil
	})

	var wg sync.WaitGroup
	got := make([]ports.EmbeddingProvider, 8)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := cache.Get(context.Background(), " GloVe")
			assert.NoError(t, err)
			got[i] = p
		}()
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load(), "concurrent callers share a load")
	p, err := cache.Get(context.Background(), "glove")
	require.NoError(t, err)
	assert.Equal(t, "glove", p.Name())
	assert.Equal(t, []string{"glove"}, cache.Loaded())
}

func TestProviderCache_Errors(t *testing.T) {
	var loads int
	cache := NewProviderCache(func(ctx context.Context, model string) (ports.EmbeddingProvider, error) {
		loads++
		return nil, errors.New("disk on fire")
	})

	_, err := cache.Get(context.Background(), "bert")
	assert.ErrorIs(t, err, core.ErrUnsupportedEmbeddingModel)
	assert.Equal(t, 0, loads)

	_, err = cache.Get(context.Background(), "fasttext")
	assert.Error(t, err)
	_, err = cache.Get(context.Background(), "fasttext")
	assert.Error(t, err)
	assert.Equal(t, 2, loads, "failed loads are retried")
	assert.Empty(t, cache.Loaded())
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.PersistentDir = t.TempDir()
	cfg.Output.Formats = []string{"json", "markdown"}

	c, err := New(cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	assert.Len(t, c.Sinks, 2)
	assert.Equal(t, cfg.DataDir(), c.Loader.Dir())
	assert.Equal(t, cfg.GloVePath(), c.EmbeddingOptions().GloVePath)
	assert.NoError(t, c.InitWithDatabase(context.Background()), "no database configured")
	assert.Nil(t, c.ResultRepo)
	assert.Equal(t, "seat", c.Naming().Suite)
}
