// Package metrics holds the Prometheus collectors exported by the
// goldeneval service.
//
// Usage:
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	m.ObserveEvaluation("inline", report)
//	m.ObserveHTTPRequest("POST", "/evaluate", 200, time.Since(start))
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brunobiangulo/goldeneval/eval"
)

// Metrics groups all goldeneval collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// EvaluationsTotal counts evaluation runs.
	// Labels: source (inline|files|dataset), grade
	EvaluationsTotal *prometheus.CounterVec

	// QuestionsScored counts scored questions by status.
	// Labels: status (pass|partial|fail)
	QuestionsScored *prometheus.CounterVec

	// EvaluationDuration measures run time in seconds.
	// Labels: source
	EvaluationDuration *prometheus.HistogramVec

	// RunF1 records the summary F1 of each run (0-100).
	RunF1 prometheus.Histogram

	// DatasetsImported counts dataset imports.
	// Labels: kind (golden|actual), result (imported|unchanged|error)
	DatasetsImported *prometheus.CounterVec

	// HTTPRequestsTotal counts HTTP requests.
	// Labels: method, route, status_code
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration measures HTTP request latency in seconds.
	// Labels: method, route
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EvaluationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldeneval_evaluations_total",
				Help: "Total number of evaluation runs by source and grade",
			},
			[]string{"source", "grade"},
		),
		QuestionsScored: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldeneval_questions_scored_total",
				Help: "Total number of scored questions by status",
			},
			[]string{"status"},
		),
		EvaluationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goldeneval_evaluation_duration_seconds",
				Help:    "Duration of evaluation runs in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"source"},
		),
		RunF1: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "goldeneval_run_f1",
			Help:    "Summary F1 score of evaluation runs",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
		DatasetsImported: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldeneval_datasets_imported_total",
				Help: "Total number of dataset imports by kind and result",
			},
			[]string{"kind", "result"},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldeneval_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goldeneval_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveEvaluation records one completed run.
func (m *Metrics) ObserveEvaluation(source string, r *eval.Report) {
	if m == nil || r == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(source, r.Grade).Inc()
	m.EvaluationDuration.WithLabelValues(source).Observe(r.RunTime.Seconds())
	m.RunF1.Observe(r.Summary.F1Score)
	for _, q := range r.Results {
		m.QuestionsScored.WithLabelValues(q.Status).Inc()
	}
}

// ObserveImport records a dataset import. unchanged is true when the import
// was skipped because the content hash matched; a non-nil err counts as a
// failed import.
func (m *Metrics) ObserveImport(kind string, unchanged bool, err error) {
	if m == nil {
		return
	}
	result := "imported"
	switch {
	case err != nil:
		result = "error"
	case unchanged:
		result = "unchanged"
	}
	m.DatasetsImported.WithLabelValues(kind, result).Inc()
}

// ObserveHTTPRequest records one served request. route is the mux pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
