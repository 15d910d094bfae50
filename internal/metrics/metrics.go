// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

// Package metrics holds the Prometheus instruments exported on /metrics and
// small Record helpers so callers never touch label ordering directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Snapshot cache metrics, labelled by cache name (venues, reviews, pricing, ...).
	SnapshotGets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanefinder_snapshot_gets_total",
			Help: "Snapshot reads by outcome (fresh, refreshed, coalesced, stale)",
		},
		[]string{"cache", "outcome"},
	)

	SnapshotRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanefinder_snapshot_refreshes_total",
			Help: "Snapshot refresh attempts by result (success, error)",
		},
		[]string{"cache", "result"},
	)

	SnapshotRefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lanefinder_snapshot_refresh_duration_seconds",
			Help:    "Duration of snapshot refresh fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cache"},
	)

	SnapshotCapturedAt = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lanefinder_snapshot_captured_timestamp_seconds",
			Help: "Unix time the current snapshot was captured",
		},
		[]string{"cache"},
	)

	SnapshotInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanefinder_snapshot_invalidations_total",
			Help: "Snapshot invalidations by source (local, remote)",
		},
		[]string{"cache", "source"},
	)

	// Store transaction metrics.
	TxnTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanefinder_store_transactions_total",
			Help: "Store transactions by result (committed, conflict, error)",
		},
		[]string{"result"},
	)

	TxnAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lanefinder_store_transaction_attempts",
			Help:    "Attempts needed per store transaction",
			Buckets: []float64{1, 2, 3, 5, 8, 13},
		},
	)

	// Rating operations.
	RatingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanefinder_rating_operations_total",
			Help: "Rating operations by kind (create, update, delete, reconcile) and result",
		},
		[]string{"operation", "result"},
	)

	// Circuit breaker metrics.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Invalidation bus.
	BusMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanefinder_invalidation_messages_total",
			Help: "Invalidation bus messages by direction (published, received, ignored, failed)",
		},
		[]string{"direction"},
	)

	// API metrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordSnapshotGet counts one Get by outcome.
func RecordSnapshotGet(cache, outcome string) {
	SnapshotGets.WithLabelValues(cache, outcome).Inc()
}

// RecordSnapshotRefresh records a finished refresh fetch.
func RecordSnapshotRefresh(cache string, duration time.Duration, capturedAt time.Time, err error) {
	SnapshotRefreshDuration.WithLabelValues(cache).Observe(duration.Seconds())
	if err != nil {
		SnapshotRefreshes.WithLabelValues(cache, "error").Inc()
		return
	}
	SnapshotRefreshes.WithLabelValues(cache, "success").Inc()
	SnapshotCapturedAt.WithLabelValues(cache).Set(float64(capturedAt.Unix()))
}

// RecordSnapshotInvalidation counts an invalidation; source is local or remote.
func RecordSnapshotInvalidation(cache, source string) {
	SnapshotInvalidations.WithLabelValues(cache, source).Inc()
}

// RecordTxn records a finished store transaction.
func RecordTxn(result string, attempts int) {
	TxnTotal.WithLabelValues(result).Inc()
	TxnAttempts.Observe(float64(attempts))
}

// RecordRatingOperation records a rating create, update, delete or reconcile.
func RecordRatingOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	RatingOperations.WithLabelValues(operation, result).Inc()
}

// RecordBreakerTransition updates breaker gauges on a state change. States
// follow gobreaker's numbering.
func RecordBreakerTransition(name, from, to string, toState int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(toState))
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordBusMessage counts an invalidation bus message.
func RecordBusMessage(direction string) {
	BusMessages.WithLabelValues(direction).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
