// Package metrics provides Prometheus metrics for benchmark runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "seat"

// Recorder owns a registry and the run metrics registered on it.
// A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	testsTotal   *prometheus.CounterVec
	testDuration *prometheus.HistogramVec
	runsTotal    *prometheus.CounterVec
	modelLoad    *prometheus.HistogramVec
	effectSize   *prometheus.GaugeVec
	runsInFlight prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		// testsTotal counts executed tests by outcome
		testsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tests_total",
				Help:      "Total number of executed association tests",
			},
			[]string{"embedding_model", "status"},
		),

		testDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "test_duration_seconds",
				Help:      "Duration of one association test including encoding",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"embedding_model"},
		),

		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of runs",
			},
			[]string{"embedding_model", "status"},
		),

		modelLoad: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_load_duration_seconds",
				Help:      "Duration of embedding model loads",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"embedding_model"},
		),

		effectSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "effect_size",
				Help:      "Effect size of the latest result per test",
			},
			[]string{"embedding_model", "test"},
		),

		runsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_in_flight",
				Help:      "Number of runs currently executing",
			},
		),
	}
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordResult records a successful test
func (r *Recorder) RecordResult(model, test string, effectSize float64, d time.Duration) {
	if r == nil {
		return
	}
	r.testsTotal.WithLabelValues(model, "ok").Inc()
	r.testDuration.WithLabelValues(model).Observe(d.Seconds())
	r.effectSize.WithLabelValues(model, test).Set(effectSize)
}

// RecordFailure records a failed test by error kind
func (r *Recorder) RecordFailure(model, kind string, d time.Duration) {
	if r == nil {
		return
	}
	r.testsTotal.WithLabelValues(model, kind).Inc()
	r.testDuration.WithLabelValues(model).Observe(d.Seconds())
}

// RecordModelLoad records how long a provider took to load
func (r *Recorder) RecordModelLoad(model string, d time.Duration) {
	if r == nil {
		return
	}
	r.modelLoad.WithLabelValues(model).Observe(d.Seconds())
}

// RunStarted marks a run as executing and returns the func that ends it
func (r *Recorder) RunStarted(model string) func(err error) {
	if r == nil {
		return func(error) {}
	}
	r.runsInFlight.Inc()
	return func(err error) {
		r.runsInFlight.Dec()
		status := "ok"
		if err != nil {
			status = "error"
		}
		r.runsTotal.WithLabelValues(model, status).Inc()
	}
}
