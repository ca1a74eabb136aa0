// Package metrics exposes Prometheus metrics for the analysis service.
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

// Analysis outcomes
const (
	OutcomeSuccess       = "success"
	OutcomeVideoNotFound = "video_not_found"
	OutcomeDecodeError   = "decode_error"
	OutcomeFeedbackError = "feedback_error"
	OutcomeError         = "error"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// withNamespace sets the namespace for all metrics.
func withNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// withHistogramBuckets sets latency buckets in seconds.
func withHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// withRegistry uses registry instead of a fresh one.
func withRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(m *Manager) {
		m.runtime = true
	}
}

// Manager owns a registry and the service's collectors. A nil Manager
// records nothing.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry
	runtime          bool

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Analysis
	analyses         *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	framesReported   prometheus.Counter

	// Temp files
	cleanupFailures prometheus.Counter
}

// NewManager creates a manager with its own registry unless one is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "replaycoach",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"route", "method"},
	)

	m.analyses = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "analyses_total",
			Help:      "Video analyses by outcome",
		},
		[]string{"outcome"},
	)

	m.analysisDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Time spent analyzing a video, feedback included",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	m.framesReported = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "frames_reported_total",
		Help:      "Container frame counts of successfully analyzed videos",
	})

	m.cleanupFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "temp_cleanup_failures_total",
		Help:      "Temporary upload files that could not be removed",
	})
}

// ObserveHTTPRequest records one served request
func (m *Manager) ObserveHTTPRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// RecordAnalysis records the outcome of one analysis. frames is the
// container's frame count and only counts on success.
func (m *Manager) RecordAnalysis(outcome string, frames int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
	m.analysisDuration.Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess && frames > 0 {
		m.framesReported.Add(float64(frames))
	}
}

// RecordCleanupFailure counts a temp file left behind
func (m *Manager) RecordCleanupFailure() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
