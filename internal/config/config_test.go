package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamshnoo/soc-bias/internal/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SEAT_PERSISTENT_DIR", "LOG_LEVEL", "SEAT_SUITE", "SEAT_MODE", "SEAT_TESTS",
		"SEAT_N_SAMPLES", "SEAT_PARAMETRIC", "SEAT_SEED", "SEAT_EMBEDDING_MODEL",
		"SEAT_CONCURRENCY", "SEAT_OUTPUT_FORMATS", "SEAT_RESULTS_DIR", "DATABASE_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "seat", cfg.Run.Suite)
	assert.Equal(t, "lang_spec", cfg.Run.Mode)
	assert.Equal(t, 1000, cfg.Run.NSamples)
	assert.Equal(t, int64(0), cfg.Run.Seed)
	assert.False(t, cfg.Run.Parametric)
	assert.Equal(t, []string{"glove"}, cfg.Run.EmbeddingModels)
	assert.Equal(t, []string{"json"}, cfg.Output.Formats)
	assert.Equal(t, filepath.Join(".", "data", "seat", "hi", "lang_spec"), cfg.DataDir())
	assert.Equal(t, filepath.Join(".", "results", "seat", "hi", "lang_spec"), cfg.ResultsDir())
	assert.Equal(t, filepath.Join(".", "glove_models", "hi", "300", "glove", "hi-d300-glove.txt"), cfg.GloVePath())
	assert.Equal(t, filepath.Join(".", "cc.hi.300.bin"), cfg.FastTextPath())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "seat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
persistent_dir: /data/persistent
run:
  mode: trans
  n_samples: 500
  tests: [weat1, weat2]
embeddings:
  elmo:
    endpoint: http://localhost:9000/encode
    timeout: 5s
output:
  formats: [json, xlsx]
`), 0o644))

	t.Setenv("SEAT_N_SAMPLES", "250")
	t.Setenv("SEAT_EMBEDDING_MODEL", "glove, fasttext")
	t.Setenv("SEAT_PARAMETRIC", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/persistent", cfg.PersistentDir)
	assert.Equal(t, "trans", cfg.Run.Mode)
	assert.Equal(t, 250, cfg.Run.NSamples)
	assert.True(t, cfg.Run.Parametric)
	assert.Equal(t, []string{"weat1", "weat2"}, cfg.Run.Tests)
	assert.Equal(t, []string{"glove", "fasttext"}, cfg.Run.EmbeddingModels)
	assert.Equal(t, []string{"json", "xlsx"}, cfg.Output.Formats)
	assert.Equal(t, 5*time.Second, cfg.Embeddings.ELMo.Timeout)
	assert.Equal(t, "vectors", cfg.Embeddings.ELMo.VectorsPath)
	assert.Equal(t, "/data/persistent/data/seat/hi/trans", cfg.DataDir())
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad mode", yaml: "run:\n  mode: other\n"},
		{name: "bad format", yaml: "output:\n  formats: [pdf]\n"},
		{name: "zero samples", env: map[string]string{"SEAT_N_SAMPLES": "0"}},
		{name: "bad endpoint", yaml: "embeddings:\n  elmo:\n    endpoint: not a url\n"},
		{name: "malformed yaml", yaml: "run: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "seat.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResultsDir_Override(t *testing.T) {
	cfg := Default()
	cfg.Output.ResultsDir = "/tmp/out"
	assert.Equal(t, "/tmp/out", cfg.ResultsDir())
}

func TestGetEnvListOrDefault(t *testing.T) {
	t.Setenv("SEAT_TEST_LIST", " a,,b ,c")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvListOrDefault("SEAT_TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, getEnvListOrDefault("SEAT_TEST_LIST_UNSET", []string{"x"}))
}
