// Package subword reads fastText binary models and composes word vectors
// from their character n-gram buckets, so unseen words still get a vector.
package subword

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/iamshnoo/soc-bias/domain/core"
	"github.com/iamshnoo/soc-bias/internal"
	"github.com/iamshnoo/soc-bias/ports"
)

const (
	fileMagic   int32 = 793712314
	fileVersion int32 = 12

	bow = "<"
	eow = ">"
	eos = "</s>"
)

// Args are the training arguments stored in the model header
type Args struct {
	Dim          int32
	WS           int32
	Epoch        int32
	MinCount     int32
	Neg          int32
	WordNgrams   int32
	Loss         int32
	Model        int32
	Bucket       int32
	Minn         int32
	Maxn         int32
	LRUpdateRate int32
	T            float64
}

// Model is a loaded fastText model. It is read-only after loading and safe
// for concurrent use.
type Model struct {
	name string
	args Args

	words        map[string]int32
	nwords       int32
	pruneIdxSize int64
	pruneIdx     map[int32]int32

	rows   int64
	cols   int64
	matrix []float32
}

var _ ports.EmbeddingProvider = (*Model)(nil)

// Load reads a fastText .bin model from path
func Load(ctx context.Context, name, path string, logger *internal.Logger) (*Model, error) {
	logger = logger.OrDefault().With("fasttext")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	m, err := Read(ctx, name, bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Info("loaded %d words, %d buckets, dimension %d from %s", m.nwords, m.args.Bucket, m.cols, path)
	return m, nil
}

// Read parses a non-quantized fastText model, stopping after the input matrix
func Read(ctx context.Context, name string, r io.Reader) (*Model, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	m := &Model{name: name}

	var magic, version int32
	if err := readLE(br, &magic, &version); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if magic != fileMagic {
		return nil, fmt.Errorf("not a fastText model (magic %d)", magic)
	}
	if version > fileVersion {
		return nil, fmt.Errorf("unsupported fastText version %d", version)
	}

	a := &m.args
	if err := readLE(br, &a.Dim, &a.WS, &a.Epoch, &a.MinCount, &a.Neg, &a.WordNgrams,
		&a.Loss, &a.Model, &a.Bucket, &a.Minn, &a.Maxn, &a.LRUpdateRate, &a.T); err != nil {
		return nil, fmt.Errorf("read args: %w", err)
	}

	if err := m.readDictionary(br); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}

	var quantized bool
	if err := readLE(br, &quantized); err != nil {
		return nil, fmt.Errorf("read matrix flag: %w", err)
	}
	if quantized {
		return nil, fmt.Errorf("quantized models are not supported")
	}
	if err := m.readMatrix(ctx, br); err != nil {
		return nil, fmt.Errorf("read input matrix: %w", err)
	}
	return m, nil
}

func (m *Model) readDictionary(r *bufio.Reader) error {
	var size, nlabels int32
	var ntokens int64
	if err := readLE(r, &size, &m.nwords, &nlabels, &ntokens, &m.pruneIdxSize); err != nil {
		return err
	}
	if size < 0 || m.nwords < 0 || m.nwords > size {
		return fmt.Errorf("corrupt dictionary sizes: size=%d nwords=%d", size, m.nwords)
	}

	m.words = make(map[string]int32, size)
	for i := int32(0); i < size; i++ {
		word, err := r.ReadString(0)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		var count int64
		var entryType int8
		if err := readLE(r, &count, &entryType); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		m.words[strings.TrimSuffix(word, "\x00")] = i
	}

	if m.pruneIdxSize > 0 {
		m.pruneIdx = make(map[int32]int32, m.pruneIdxSize)
		for i := int64(0); i < m.pruneIdxSize; i++ {
			var from, to int32
			if err := readLE(r, &from, &to); err != nil {
				return fmt.Errorf("prune index %d: %w", i, err)
			}
			m.pruneIdx[from] = to
		}
	}
	return nil
}

func (m *Model) readMatrix(ctx context.Context, r io.Reader) error {
	if err := readLE(r, &m.rows, &m.cols); err != nil {
		return err
	}
	if m.rows < 0 || m.cols <= 0 {
		return fmt.Errorf("invalid shape %dx%d", m.rows, m.cols)
	}

	m.matrix = make([]float32, m.rows*m.cols)
	const chunk = 1 << 20
	for off := int64(0); off < int64(len(m.matrix)); off += chunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := off + chunk
		if end > int64(len(m.matrix)) {
			end = int64(len(m.matrix))
		}
		if err := binary.Read(r, binary.LittleEndian, m.matrix[off:end]); err != nil {
			return err
		}
	}
	return nil
}

func readLE(r io.Reader, fields ...interface{}) error {
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) Name() string   { return m.name }
func (m *Model) Dimension() int { return int(m.cols) }

// Args returns the model's training arguments
func (m *Model) Args() Args { return m.args }

// rowsFor lists the matrix rows whose mean is the word's vector: the word's
// own row when it is in the vocabulary, then its n-gram buckets.
func (m *Model) rowsFor(word string) []int64 {
	var rows []int64
	if id, ok := m.words[word]; ok {
		rows = append(rows, int64(id))
	}
	if word == eos {
		return rows
	}
	if m.args.Bucket <= 0 {
		return rows
	}
	for _, ngram := range ngrams(bow+word+eow, int(m.args.Minn), int(m.args.Maxn)) {
		if row, ok := m.bucketRow(int32(hash(ngram) % uint32(m.args.Bucket))); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func (m *Model) bucketRow(h int32) (int64, bool) {
	switch {
	case m.pruneIdxSize == 0 || h < 0:
		return 0, false
	case m.pruneIdxSize > 0:
		to, ok := m.pruneIdx[h]
		if !ok {
			return 0, false
		}
		h = to
	}
	return int64(m.nwords) + int64(h), true
}

// EncodeWord averages the word's rows. A word with neither a vocabulary
// entry nor any n-gram is unknown.
func (m *Model) EncodeWord(ctx context.Context, token string) ([]float64, error) {
	rows := m.rowsFor(token)
	if len(rows) == 0 {
		return nil, core.NewUnknownTokenError(token)
	}
	vec := make([]float64, m.cols)
	for _, row := range rows {
		if row >= m.rows {
			return nil, fmt.Errorf("row %d outside input matrix of %d rows", row, m.rows)
		}
		base := row * m.cols
		for i := range vec {
			vec[i] += float64(m.matrix[base+int64(i)])
		}
	}
	n := float64(len(rows))
	for i := range vec {
		vec[i] /= n
	}
	return vec, nil
}

// EncodeSentence is the mean of the L2-normalised word vectors. Words whose
// vector has zero norm are skipped; a sentence with none left is unknown.
func (m *Model) EncodeSentence(ctx context.Context, tokens []string) ([]float64, error) {
	if len(tokens) == 0 {
		return nil, core.ErrEmptySentence
	}
	sum := make([]float64, m.cols)
	count := 0
	for _, tok := range tokens {
		vec, err := m.EncodeWord(ctx, tok)
		if errors.Is(err, core.ErrUnknownToken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var sq float64
		for _, v := range vec {
			sq += v * v
		}
		norm := math.Sqrt(sq)
		if norm == 0 {
			continue
		}
		for i, v := range vec {
			sum[i] += v / norm
		}
		count++
	}
	if count == 0 {
		return nil, core.NewUnknownTokenError(strings.Join(tokens, " "))
	}
	for i := range sum {
		sum[i] /= float64(count)
	}
	return sum, nil
}
