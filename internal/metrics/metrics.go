// Package metrics holds the Prometheus collectors for quality runs. Each
// Metrics value owns a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	PhaseInitial = "initial"
	PhaseFinal   = "final"
)

type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	scores      *prometheus.HistogramVec
	issues      *prometheus.CounterVec
	httpReqs    *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "data_quality"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Quality runs by terminal status.",
		}, []string{"status"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a quality run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		scores: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quality_score",
			Help:      "Quality score before and after cleaning.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}, []string{"phase"}),
		issues: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_detected_total",
			Help:      "Issue categories detected in initial evaluations.",
		}, []string{"category"}),
		httpReqs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// The recorder methods are nil-safe so callers can run without metrics.

func (m *Metrics) RunFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) Score(phase string, score int) {
	if m == nil {
		return
	}
	m.scores.WithLabelValues(phase).Observe(float64(score))
}

func (m *Metrics) IssueDetected(category string) {
	if m == nil {
		return
	}
	m.issues.WithLabelValues(category).Inc()
}

func (m *Metrics) Request(method string, code int) {
	if m == nil {
		return
	}
	m.httpReqs.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
