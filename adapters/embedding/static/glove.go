// Package static serves word vectors from a pre-trained lookup table in the
// GloVe text format: one word per line followed by its components.
package static

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/internal"
	"github.com/iamshnoo/soc-bias/ports"
)

// DefaultMaxWords is how many lines of a vector file are read
const DefaultMaxWords = 500000

const maxLineBytes = 4 << 20

// Table is a read-only word to vector table, safe for concurrent use
type Table struct {
	name    string
	dim     int
	vectors map[string][]float64
}

var _ ports.EmbeddingProvider = (*Table)(nil)

// Load reads at most maxWords lines of the vector file at path
func Load(ctx context.Context, name, path string, maxWords int, logger *internal.Logger) (*Table, error) {
	logger = logger.OrDefault().With("glove")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vector file: %w", err)
	}
	defer f.Close()

	table, err := Read(ctx, name, f, maxWords)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Info("loaded %d vectors of dimension %d from %s", len(table.vectors), table.dim, path)
	return table, nil
}

// Read parses a vector table. A leading "<count> <dim>" header line is
// skipped; rows of differing length are rejected. Later duplicates of a
// word replace earlier ones.
func Read(ctx context.Context, name string, r io.Reader, maxWords int) (*Table, error) {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	table := &Table{name: name, vectors: make(map[string][]float64)}
	for line := 0; line < maxWords && scanner.Scan(); line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if line == 0 && isHeader(fields) {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: word %q has no components", line+1, fields[0])
		}

		vec := make([]float64, len(fields)-1)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: component %d of %q: %w", line+1, i+1, fields[0], err)
			}
			vec[i] = v
		}

		if table.dim == 0 {
			table.dim = len(vec)
		} else if len(vec) != table.dim {
			return nil, fmt.Errorf("line %d: %w", line+1, core.NewDimensionMismatchError(table.dim, len(vec)))
		}
		table.vectors[fields[0]] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vector file: %w", err)
	}
	if len(table.vectors) == 0 {
		return nil, fmt.Errorf("vector file has no vectors")
	}
	return table, nil
}

// isHeader matches the word2vec "<count> <dim>" first line
func isHeader(fields []string) bool {
	if len(fields) != 2 {
		return false
	}
	for _, f := range fields {
		if _, err := strconv.Atoi(f); err != nil {
			return false
		}
	}
	return true
}

func (t *Table) Name() string   { return t.name }
func (t *Table) Dimension() int { return t.dim }

// Len returns the vocabulary size
func (t *Table) Len() int { return len(t.vectors) }

// EncodeWord returns a copy of the token's vector
func (t *Table) EncodeWord(ctx context.Context, token string) ([]float64, error) {
	vec, ok := t.vectors[token]
	if !ok {
		return nil, core.NewUnknownTokenError(token)
	}
	return append([]float64(nil), vec...), nil
}

// EncodeSentence is the mean of the tokens' vectors. Every token must be known.
func (t *Table) EncodeSentence(ctx context.Context, tokens []string) ([]float64, error) {
	if len(tokens) == 0 {
		return nil, core.ErrEmptySentence
	}
	sum := make([]float64, t.dim)
	for _, tok := range tokens {
		vec, ok := t.vectors[tok]
		if !ok {
			return nil, core.NewUnknownTokenError(tok)
		}
		for i, v := range vec {
			sum[i] += v
		}
	}
	n := float64(len(tokens))
	for i := range sum {
		sum[i] /= n
	}
	return sum, nil
}
