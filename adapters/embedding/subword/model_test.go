package subword

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamshnoo/soc-bias/domain/core"
)

const testBucket = 7

// testModel builds a two-word model of dimension 2 whose n-gram bucket k
// holds the vector (k+1, -(k+1)).
func testModel(t *testing.T, minn, maxn int32, pruneIdxSize int64) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := func(vs ...interface{}) {
		for _, v := range vs {
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
		}
	}

	w(fileMagic, fileVersion)
	w(int32(2), int32(5), int32(5), int32(5), int32(5), int32(1), // dim ws epoch minCount neg wordNgrams
		int32(1), int32(2), int32(testBucket), minn, maxn, int32(100), float64(1e-4))

	words := []string{"ab", "cd"}
	w(int32(len(words)), int32(len(words)), int32(0), int64(10), pruneIdxSize)
	for _, word := range words {
		buf.WriteString(word)
		buf.WriteByte(0)
		w(int64(5), int8(0))
	}

	w(false)
	rows := int64(len(words) + testBucket)
	w(rows, int64(2))
	w([]float32{1, 1}, []float32{-1, 1})
	for k := 0; k < testBucket; k++ {
		w([]float32{float32(k + 1), -float32(k + 1)})
	}
	return buf.Bytes()
}

func expected(word string, own []float64, minn, maxn int) []float64 {
	var sum [2]float64
	n := 0
	if own != nil {
		sum[0], sum[1] = own[0], own[1]
		n++
	}
	for _, g := range ngrams("<"+word+">", minn, maxn) {
		k := float64(hash(g)%testBucket) + 1
		sum[0] += k
		sum[1] -= k
		n++
	}
	return []float64{sum[0] / float64(n), sum[1] / float64(n)}
}

func TestNgrams(t *testing.T) {
	assert.Equal(t, []string{"<ab", "<ab>", "ab>"}, ngrams("<ab>", 3, 4))
	assert.Equal(t, []string{"<a", "a", "ab", "b", "b>"}, ngrams("<ab>", 1, 2))
	assert.Empty(t, ngrams("<>", 3, 6))
}

func TestNgrams_MultiByteCharacters(t *testing.T) {
	assert.Equal(t, []string{"अ"}, ngrams("<अ>", 1, 1))
	assert.Equal(t, []string{"<अ", "अ>"}, ngrams("<अ>", 2, 2))
}

func TestHash(t *testing.T) {
	for _, s := range []string{"<ab", "ab>", "<hello>"} {
		h := fnv.New32a()
		h.Write([]byte(s))
		assert.Equal(t, h.Sum32(), hash(s), s)
	}

	h := fnv.New32a()
	h.Write([]byte("अ"))
	assert.NotEqual(t, h.Sum32(), hash("अ"), "bytes above 0x7f are sign extended")
}

func TestRead(t *testing.T) {
	m, err := Read(context.Background(), "fasttext", bytes.NewReader(testModel(t, 3, 4, -1)))
	require.NoError(t, err)

	assert.Equal(t, "fasttext", m.Name())
	assert.Equal(t, 2, m.Dimension())
	assert.Equal(t, int32(testBucket), m.Args().Bucket)
}

func TestEncodeWord(t *testing.T) {
	m, err := Read(context.Background(), "fasttext", bytes.NewReader(testModel(t, 3, 4, -1)))
	require.NoError(t, err)
	ctx := context.Background()

	vec, err := m.EncodeWord(ctx, "ab")
	require.NoError(t, err)
	assert.InDeltaSlice(t, expected("ab", []float64{1, 1}, 3, 4), vec, 1e-9)

	oov, err := m.EncodeWord(ctx, "zz")
	require.NoError(t, err)
	assert.InDeltaSlice(t, expected("zz", nil, 3, 4), oov, 1e-9)

	_, err = m.EncodeWord(ctx, "")
	assert.ErrorIs(t, err, core.ErrUnknownToken)
}

func TestEncodeWord_FullyPrunedBuckets(t *testing.T) {
	m, err := Read(context.Background(), "fasttext", bytes.NewReader(testModel(t, 3, 4, 0)))
	require.NoError(t, err)

	vec, err := m.EncodeWord(context.Background(), "cd")
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 1}, vec)

	_, err = m.EncodeWord(context.Background(), "zz")
	assert.ErrorIs(t, err, core.ErrUnknownToken)
}

func TestEncodeSentence(t *testing.T) {
	m, err := Read(context.Background(), "fasttext", bytes.NewReader(testModel(t, 3, 4, 0)))
	require.NoError(t, err)
	ctx := context.Background()

	// ab = (1,1), cd = (-1,1); unit vectors average to (0, 1/sqrt2)
	vec, err := m.EncodeSentence(ctx, []string{"ab", "cd"})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1 / math.Sqrt2}, vec, 1e-12)

	// unknown words are skipped
	vec, err = m.EncodeSentence(ctx, []string{"ab", "zz"})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1 / math.Sqrt2, 1 / math.Sqrt2}, vec, 1e-12)

	_, err = m.EncodeSentence(ctx, []string{"zz"})
	assert.ErrorIs(t, err, core.ErrUnknownToken)

	_, err = m.EncodeSentence(ctx, nil)
	assert.ErrorIs(t, err, core.ErrEmptySentence)
}

func TestRead_Rejects(t *testing.T) {
	valid := testModel(t, 3, 4, -1)

	badMagic := append([]byte(nil), valid...)
	badMagic[0] ^= 0xFF
	_, err := Read(context.Background(), "fasttext", bytes.NewReader(badMagic))
	assert.Error(t, err)

	_, err = Read(context.Background(), "fasttext", bytes.NewReader(valid[:len(valid)-3]))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cc.hi.2.bin")
	require.NoError(t, os.WriteFile(path, testModel(t, 3, 4, -1), 0o644))

	m, err := Load(context.Background(), "fasttext", path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Dimension())
}
