// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package snapshot

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/metrics"
)

// BreakerSettings configure WithBreaker.
type BreakerSettings struct {
	// Failures is the number of consecutive fetch failures that opens the
	// breaker. Default 5.
	Failures uint32
	// Timeout is how long the breaker stays open before a trial fetch.
	// Default one minute.
	Timeout time.Duration
}

// WithBreaker wraps fetch in a circuit breaker. While the breaker is open,
// fetches fail immediately with gobreaker.ErrOpenState and the cache keeps
// serving its previous snapshot without touching the store.
func WithBreaker[T any](name string, settings BreakerSettings, fetch Fetcher[T]) Fetcher[T] {
	if settings.Failures == 0 {
		settings.Failures = 5
	}
	if settings.Timeout <= 0 {
		settings.Timeout = time.Minute
	}
	cbName := "snapshot-" + name
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(float64(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.RecordBreakerTransition(name, from.String(), to.String(), int(to))
		},
	})

	return func(ctx context.Context) (T, error) {
		return cb.Execute(func() (T, error) {
			return fetch(ctx)
		})
	}
}
