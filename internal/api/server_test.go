package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamshnoo/soc-bias/domain/run"
	"github.com/iamshnoo/soc-bias/domain/weat"
	"github.com/iamshnoo/soc-bias/internal/config"
	"github.com/iamshnoo/soc-bias/internal/container"
	"github.com/iamshnoo/soc-bias/internal/errors"
	"github.com/iamshnoo/soc-bias/internal/testkit"
)

func newTestServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.PersistentDir = testkit.PersistentDir(t, cfg.Run.Suite, cfg.Run.Mode)

	c, err := container.New(cfg, nil)
	require.NoError(t, err)
	return NewServer(c), cfg
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestHealthAndModels(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = do(t, s, http.MethodGet, "/api/v1/models", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fasttext")
}

func TestListTests(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/tests", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tests []string `json:"tests"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"weat1"}, body.Tests)
}

func TestRunThenReadResults(t *testing.T) {
	s, cfg := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/runs", map[string]interface{}{"seed": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Runs []run.Report `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	report := body.Runs[0]
	assert.Equal(t, "seat_all_lang_spec_glove", report.Manifest.ExperimentID.String())
	require.Len(t, report.Entries, 1)
	require.NotNil(t, report.Entries[0].Result)
	assert.InDelta(t, testkit.Weat1PValue, report.Entries[0].Result.PValue, 1e-12)
	assert.Equal(t, int64(3), report.Entries[0].Result.Seed)

	_, err := os.Stat(filepath.Join(cfg.ResultsDir(), "seat_all_lang_spec_glove.json"))
	require.NoError(t, err)

	rec = do(t, s, http.MethodGet, "/api/v1/experiments/seat_all_lang_spec_glove/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []weat.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "weat1", entries[0].TestID())

	rec = do(t, s, http.MethodGet, "/metrics", nil)
	assert.Contains(t, rec.Body.String(), `seat_tests_total{embedding_model="glove",status="ok"} 1`)
}

func TestRunErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"unsupported model", map[string]interface{}{"embedding_models": []string{"bert"}}, http.StatusBadRequest, errors.CodeUnsupportedModel},
		{"bad samples", map[string]interface{}{"n_samples": 0}, http.StatusBadRequest, errors.CodeValidationError},
		{"unknown field", map[string]interface{}{"samples": 10}, http.StatusBadRequest, errors.CodeInvalidInput},
		{"path in name", map[string]interface{}{"experiment_name": "../x"}, http.StatusBadRequest, errors.CodeValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/runs", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestExperimentsWithoutDatabase(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/experiments", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/experiments/never_run/results", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
