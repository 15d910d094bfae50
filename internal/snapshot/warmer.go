// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package snapshot

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/lanefinder/internal/logging"
)

// Warmer re-primes every registered cache shortly after local midnight so the
// first request of the day does not pay for the refresh. It implements
// suture.Service.
type Warmer struct {
	registry *Registry
	clock    clockwork.Clock
	loc      *time.Location
	delay    time.Duration
	warmed   func(time.Time)
}

// NewWarmer creates a warmer that fires delay after each midnight in loc.
func NewWarmer(registry *Registry, clock clockwork.Clock, loc *time.Location, delay time.Duration) *Warmer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Warmer{registry: registry, clock: clock, loc: loc, delay: delay}
}

// NextRun returns the first warm-up time strictly after now.
func (w *Warmer) NextRun(now time.Time) time.Time {
	next := Midnight(now, w.loc).AddDate(0, 0, 1).Add(w.delay)
	if today := Midnight(now, w.loc).Add(w.delay); today.After(now) {
		return today
	}
	return next
}

// Serve waits for each warm-up time until ctx is done.
func (w *Warmer) Serve(ctx context.Context) error {
	for {
		now := w.clock.Now()
		timer := w.clock.NewTimer(w.NextRun(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.Chan():
		}

		start := w.clock.Now()
		if err := w.registry.PrimeAll(ctx); err != nil {
			logging.Warn().Err(err).Msg("Midnight cache warm-up failed; caches will refresh on demand")
		} else {
			logging.Info().Dur("duration", w.clock.Since(start)).Msg("Midnight cache warm-up complete")
		}
		if w.warmed != nil {
			w.warmed(start)
		}
	}
}

func (w *Warmer) String() string {
	return "snapshot-warmer"
}
