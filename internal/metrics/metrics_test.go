package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.RecordResult("glove", "weat1", 1.25, 10*time.Millisecond)
	r.RecordResult("glove", "weat2", -0.5, 10*time.Millisecond)
	r.RecordFailure("glove", "encoding_failure", time.Millisecond)
	done := r.RunStarted("glove")
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsInFlight))
	done(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.testsTotal.WithLabelValues("glove", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.testsTotal.WithLabelValues("glove", "encoding_failure")))
	assert.Equal(t, 1.25, testutil.ToFloat64(r.effectSize.WithLabelValues("glove", "weat1")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.runsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("glove", "error")))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.RecordModelLoad("fasttext", time.Second)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "seat_model_load_duration_seconds")
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordResult("glove", "weat1", 1, time.Second)
		r.RecordFailure("glove", "x", time.Second)
		r.RecordModelLoad("glove", time.Second)
		r.RunStarted("glove")(nil)
	})
	assert.Nil(t, r.Registry())
}
