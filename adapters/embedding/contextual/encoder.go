// Package contextual encodes sentences with a remote contextual model
// (ELMo-style) that returns one vector per input token.
package contextual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/internal"
	apperrors "github.com/iamshnoo/soc-bias/internal/errors"
	"github.com/iamshnoo/soc-bias/ports"
)

// DefaultVectorsPath selects the per-token vectors in the service response
const DefaultVectorsPath = "vectors"

// Config configures the encoding service client
type Config struct {
	Endpoint    string
	VectorsPath string // gjson path to an array of per-token vectors
	Layer       int    // sent as "layer"; 0 is the character layer
	Dimension   int    // expected vector size, 0 to learn it from the first response
	Token       string // optional bearer token
	Timeout     time.Duration
}

// Encoder posts token sequences to the service and mean-pools the returned
// token vectors. Its only mutable state is the learned dimension, so it is
// safe for concurrent use.
type Encoder struct {
	name       string
	config     Config
	dim        atomic.Int64
	httpClient *http.Client
	logger     *internal.Logger
}

var _ ports.EmbeddingProvider = (*Encoder)(nil)

type encodeRequest struct {
	Tokens []string `json:"tokens"`
	Layer  int      `json:"layer"`
}

// NewEncoder creates a client for the service at config.Endpoint
func NewEncoder(name string, config Config, logger *internal.Logger) (*Encoder, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("contextual encoder endpoint is not configured")
	}
	if config.VectorsPath == "" {
		config.VectorsPath = DefaultVectorsPath
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	e := &Encoder{
		name:   name,
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.OrDefault().With("contextual"),
	}
	e.dim.Store(int64(config.Dimension))
	return e, nil
}

func (e *Encoder) Name() string { return e.name }

// Dimension is the configured vector size, or the size of the first response
// when none was configured. It is 0 before that response.
func (e *Encoder) Dimension() int { return int(e.dim.Load()) }

// EncodeWord encodes the token as a one-token sentence
func (e *Encoder) EncodeWord(ctx context.Context, token string) ([]float64, error) {
	return e.EncodeSentence(ctx, []string{token})
}

// EncodeSentence returns the mean of the sentence's token vectors
func (e *Encoder) EncodeSentence(ctx context.Context, tokens []string) ([]float64, error) {
	if len(tokens) == 0 {
		return nil, core.ErrEmptySentence
	}

	body, err := e.post(ctx, tokens)
	if err != nil {
		return nil, err
	}

	vectors := gjson.GetBytes(body, e.config.VectorsPath)
	if !vectors.IsArray() {
		return nil, fmt.Errorf("response has no array at %q", e.config.VectorsPath)
	}
	rows := vectors.Array()
	if len(rows) != len(tokens) {
		return nil, fmt.Errorf("service returned %d vectors for %d tokens", len(rows), len(tokens))
	}

	var sum []float64
	for i, row := range rows {
		values := row.Array()
		if sum == nil {
			sum = make([]float64, len(values))
		}
		if len(values) != len(sum) {
			return nil, fmt.Errorf("token %d: %w", i, core.NewDimensionMismatchError(len(sum), len(values)))
		}
		for j, v := range values {
			sum[j] += v.Float()
		}
	}
	if len(sum) == 0 {
		return nil, fmt.Errorf("service returned empty vectors for %q", tokens)
	}
	e.dim.CompareAndSwap(0, int64(len(sum)))
	if dim := e.Dimension(); len(sum) != dim {
		return nil, core.NewDimensionMismatchError(dim, len(sum))
	}
	for j := range sum {
		sum[j] /= float64(len(rows))
	}
	return sum, nil
}

func (e *Encoder) post(ctx context.Context, tokens []string) ([]byte, error) {
	payload, err := json.Marshal(encodeRequest{Tokens: tokens, Layer: e.config.Layer})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.Token)
	}

	reqStart := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ExternalServiceError(e.name, fmt.Errorf("HTTP request failed: %w", err))
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	e.logger.Trace("encoded %d tokens in %s", len(tokens), time.Since(reqStart))

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: service rejected %q: %s", core.ErrUnknownToken, tokens, gjson.GetBytes(body, "error").String())
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.ExternalServiceError(e.name, fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}
	return body, nil
}
