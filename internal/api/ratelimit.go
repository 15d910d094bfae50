// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Idle limiters are dropped after limiterIdleTTL; cleanup runs every
// limiterSweepInterval while the limiter is served.
const (
	limiterIdleTTL       = time.Hour
	limiterSweepInterval = 5 * time.Minute
)

// ReviewLimiter throttles review writes per reviewer with a token bucket.
// It implements suture.Service to sweep idle buckets.
type ReviewLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	every    rate.Limit
	burst    int
	clock    clockwork.Clock
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewReviewLimiter allows perMinute writes per reviewer, with bursts of the
// same size. perMinute <= 0 returns nil, which disables limiting.
func NewReviewLimiter(perMinute int, clock clockwork.Clock) *ReviewLimiter {
	if perMinute <= 0 {
		return nil
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ReviewLimiter{
		limiters: make(map[string]*limiterEntry),
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		clock:    clock,
	}
}

// Allow reports whether reviewer may write now. When denied it returns how
// long until a token is available; the denied attempt consumes nothing.
func (l *ReviewLimiter) Allow(reviewer string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	now := l.clock.Now()

	l.mu.Lock()
	entry, ok := l.limiters[reviewer]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.every, l.burst)}
		l.limiters[reviewer] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	l.mu.Unlock()

	res := limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Minute
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Serve sweeps idle limiters until ctx is canceled.
func (l *ReviewLimiter) Serve(ctx context.Context) error {
	ticker := l.clock.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			l.sweep()
		}
	}
}

func (l *ReviewLimiter) String() string {
	return "review-limiter"
}

func (l *ReviewLimiter) sweep() {
	threshold := l.clock.Now().Add(-limiterIdleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(l.limiters, key)
		}
	}
}

func (l *ReviewLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
