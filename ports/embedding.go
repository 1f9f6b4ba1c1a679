package ports

import "context"

// EmbeddingProvider maps words and sentences to fixed-length vectors.
// Implementations fail with core.ErrUnknownToken for input they cannot
// represent and core.ErrEmptySentence for a sentence with no tokens; they
// never substitute a zero vector.
type EmbeddingProvider interface {
	// Name is the model selector the provider was built for
	Name() string

	// Dimension is the length of every vector the provider returns. A
	// provider that learns it from its first answer reports 0 until then.
	Dimension() int

	EncodeWord(ctx context.Context, token string) ([]float64, error)
	EncodeSentence(ctx context.Context, tokens []string) ([]float64, error)
}
