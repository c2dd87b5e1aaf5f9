// Package metrics provides Prometheus metrics for rankgate observability.
// The metrics are domain-centric: callback correlation health, name
// resolution effectiveness, and HTTP surface throughput.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// MetricPrefix prefix for all rankgate metrics
	MetricPrefix = "rankgate_"

	// --- Label names used across metrics

	LabelEndpoint     = "endpoint"
	LabelStatusCode   = "status_code"
	LabelCallbackKind = "kind"
	LabelOutcome      = "outcome"
	LabelQuery        = "query"
	LabelStep         = "step"

	// --- Callback kinds

	KindFind    = "leaderboard_find"
	KindEntries = "leaderboard_entries"
	KindLobby   = "lobby_list"
	KindPersona = "persona_state"

	// --- Callback outcomes

	CallbackDelivered = "delivered"
	CallbackDropped   = "dropped"

	// --- Query and protocol step names

	QueryLeaderboard = "leaderboard"
	QueryLobby       = "lobby"

	StepFind    = "find"
	StepEntries = "fetch"
	StepList    = "list"

	// --- Query step outcomes

	StepOutcomeOK            = "ok"
	StepOutcomeNotFound      = "not_found"
	StepOutcomeRemoteFailure = "remote_failure"
	StepOutcomeTimeout       = "timeout"
	StepOutcomeNoSession     = "no_session"

	// --- Name resolution outcomes

	NameOutcomeCacheHit   = "cache_hit"
	NameOutcomeResolved   = "resolved"
	NameOutcomeUnresolved = "unresolved"
)

// =============================================================================
// HTTP Surface (Counter + Histogram)
// Labels: endpoint, status_code
// Purpose: Track request throughput and end-to-end latency per endpoint
// =============================================================================

var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: MetricPrefix + "requests_total",
		Help: "Total HTTP requests by endpoint and status_code.",
	},
	[]string{LabelEndpoint, LabelStatusCode},
)

var RequestLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    MetricPrefix + "request_latency_seconds",
		Help:    "End-to-end HTTP request latency in seconds by endpoint and status_code.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{LabelEndpoint, LabelStatusCode},
)

// =============================================================================
// Callback Correlation (Counter + Gauge)
// Labels: kind, outcome
// Purpose: Track inbound callback delivery and waiter backlog; a growing
// pending gauge or a high dropped rate points at correlation trouble
// =============================================================================

var CallbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: MetricPrefix + "callbacks_total",
		Help: "Inbound transport callbacks by kind and outcome (delivered/dropped).",
	},
	[]string{LabelCallbackKind, LabelOutcome},
)

var PendingWaiters = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: MetricPrefix + "pending_waiters",
		Help: "Outstanding correlation waiters by callback kind.",
	},
	[]string{LabelCallbackKind},
)

// =============================================================================
// Query Protocol Steps (Counter)
// Labels: query, step, outcome
// Purpose: Track where multi-step queries terminate
// =============================================================================

var QueryStepsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: MetricPrefix + "query_steps_total",
		Help: "Query protocol steps by query (leaderboard/lobby), step (find/fetch/list), and outcome.",
	},
	[]string{LabelQuery, LabelStep, LabelOutcome},
)

// =============================================================================
// Name Resolution (Counter + Histogram)
// Labels: outcome
// Purpose: Track cache effectiveness and batch resolution latency
// =============================================================================

var NameLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: MetricPrefix + "name_lookups_total",
		Help: "Persona name lookups by outcome (cache_hit/resolved/unresolved).",
	},
	[]string{LabelOutcome},
)

var NameBatchLatency = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    MetricPrefix + "name_batch_latency_seconds",
		Help:    "Latency of batched persona name resolution, including the bounded wait.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
)

// =============================================================================
// Helper Functions for Recording Metrics
// =============================================================================

// RecordRequest records an HTTP request with its status code and latency.
func RecordRequest(endpoint, statusCode string, latencySeconds float64) {
	RequestsTotal.WithLabelValues(endpoint, statusCode).Inc()
	RequestLatency.WithLabelValues(endpoint, statusCode).Observe(latencySeconds)
}

// RecordCallback records an inbound callback delivery outcome.
// outcome should be CallbackDelivered or CallbackDropped.
func RecordCallback(kind, outcome string) {
	CallbacksTotal.WithLabelValues(kind, outcome).Inc()
}

// SetPendingWaiters publishes the current waiter backlog for a callback kind.
func SetPendingWaiters(kind string, count int) {
	PendingWaiters.WithLabelValues(kind).Set(float64(count))
}

// RecordQueryStep records the outcome of one protocol step of a query.
func RecordQueryStep(query, step, outcome string) {
	QueryStepsTotal.WithLabelValues(query, step, outcome).Inc()
}

// RecordNameLookups records n lookups sharing one outcome.
func RecordNameLookups(outcome string, n int) {
	if n <= 0 {
		return
	}
	NameLookupsTotal.WithLabelValues(outcome).Add(float64(n))
}

// ObserveNameBatch records the duration of one ResolveBatch call.
func ObserveNameBatch(seconds float64) {
	NameBatchLatency.Observe(seconds)
}
