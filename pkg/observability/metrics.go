package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Session metrics
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "therapist_sessions_total",
			Help: "Total number of chat sessions started",
		},
		[]string{"mode", "provider"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "therapist_sessions_active",
			Help: "Number of sessions that have started and not yet ended",
		},
	)

	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "therapist_turns_total",
			Help: "Total number of conversation turns by outcome",
		},
		[]string{"provider", "outcome"},
	)

	// Backend metrics
	backendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "therapist_backend_requests_total",
			Help: "Total number of backend requests",
		},
		[]string{"provider", "status"},
	)

	backendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "therapist_backend_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	initOnce sync.Once
)

// Turn outcomes
const (
	OutcomeReply = "reply"
	OutcomeError = "error"
)

// InitMetrics registers the metrics with the default registry
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			sessionsTotal,
			sessionsActive,
			turnsTotal,
			backendRequestsTotal,
			backendRequestDuration,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordSessionStarted counts a started session and marks it active.
func RecordSessionStarted(mode, provider string) {
	sessionsTotal.WithLabelValues(mode, provider).Inc()
	sessionsActive.Inc()
}

// RecordSessionEnded marks a session inactive.
func RecordSessionEnded() {
	sessionsActive.Dec()
}

// RecordTurn records the outcome of one conversation turn.
func RecordTurn(provider, outcome string) {
	turnsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordBackendRequest records one backend call.
func RecordBackendRequest(provider, status string, duration time.Duration) {
	backendRequestsTotal.WithLabelValues(provider, status).Inc()
	backendRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}
