// Package embedding selects and builds the embedding provider for a model name.
package embedding

import (
	"context"
	"strings"
	"time"

	"github.com/iamshnoo/soc-bias/adapters/embedding/contextual"
	"github.com/iamshnoo/soc-bias/adapters/embedding/static"
	"github.com/iamshnoo/soc-bias/adapters/embedding/subword"
	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/internal"
	apperrors "github.com/iamshnoo/soc-bias/internal/errors"
	"github.com/iamshnoo/soc-bias/ports"
)

// Supported model selectors
const (
	ModelGloVe    = "glove"
	ModelFastText = "fasttext"
	ModelELMo     = "elmo"
)

// Kind is the provider variant a model is served by
type Kind string

const (
	KindStaticLookup      Kind = "static_lookup"
	KindSubwordModel      Kind = "subword_model"
	KindContextualEncoder Kind = "contextual_encoder"
)

var kinds = map[string]Kind{
	ModelGloVe:    KindStaticLookup,
	ModelFastText: KindSubwordModel,
	ModelELMo:     KindContextualEncoder,
}

// Models lists the supported selectors
func Models() []string {
	return []string{ModelFastText, ModelGloVe, ModelELMo}
}

// Options carries what each provider variant needs to load
type Options struct {
	GloVePath string
	MaxWords  int

	FastTextPath string

	ELMoEndpoint    string
	ELMoVectorsPath string
	ELMoLayer       int
	ELMoDimension   int
	ELMoToken       string
	ELMoTimeout     time.Duration
}

// Validate rejects an unknown selector. It is cheap and runs before any model
// is loaded or any test executes.
func Validate(model string) (Kind, error) {
	kind, ok := kinds[strings.ToLower(strings.TrimSpace(model))]
	if !ok {
		return "", apperrors.UnsupportedModel(model, core.NewUnsupportedModelError(model))
	}
	return kind, nil
}

// New loads the provider for model
func New(ctx context.Context, model string, opts Options, logger *internal.Logger) (ports.EmbeddingProvider, error) {
	kind, err := Validate(model)
	if err != nil {
		return nil, err
	}
	name := strings.ToLower(strings.TrimSpace(model))
	logger = logger.OrDefault().With("embedding")
	logger.Info("loading %s provider for %s", kind, name)

	var provider ports.EmbeddingProvider
	switch kind {
	case KindStaticLookup:
		if opts.GloVePath == "" {
			return nil, apperrors.ConfigInvalid("glove vectors path is not configured")
		}
		provider, err = static.Load(ctx, name, opts.GloVePath, opts.MaxWords, logger)
	case KindSubwordModel:
		if opts.FastTextPath == "" {
			return nil, apperrors.ConfigInvalid("fasttext model path is not configured")
		}
		provider, err = subword.Load(ctx, name, opts.FastTextPath, logger)
	case KindContextualEncoder:
		provider, err = contextual.NewEncoder(name, contextual.Config{
			Endpoint:    opts.ELMoEndpoint,
			VectorsPath: opts.ELMoVectorsPath,
			Layer:       opts.ELMoLayer,
			Dimension:   opts.ELMoDimension,
			Token:       opts.ELMoToken,
			Timeout:     opts.ELMoTimeout,
		}, logger)
	}
	if err != nil {
		return nil, apperrors.ModelLoad(name, err)
	}
	return provider, nil
}
