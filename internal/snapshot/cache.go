// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

/*
Package snapshot provides refresh-gated, process-local caches of derived data.

A Cache holds one immutable snapshot produced by a Fetcher. The snapshot is
valid until local midnight of the configured location, or until Invalidate is
called. Concurrent readers of an expired cache share a single fetch (a flight);
if that fetch fails the previous snapshot keeps being served and ErrUnavailable
is returned only when nothing was ever captured.

Snapshots are shared between goroutines. Callers must not modify them.

Invalidation uses a generation counter. Every flight records the generation it
started under, and a snapshot published by a flight older than the current
generation is already expired. A Get that starts after Invalidate therefore
never returns data fetched before the invalidation point.
*/
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/metrics"
)

// ErrUnavailable is returned when a refresh fails and no snapshot has ever
// been captured. The underlying cause is wrapped alongside it.
var ErrUnavailable = errors.New("snapshot unavailable")

// Get outcomes recorded in metrics.
const (
	outcomeFresh       = "fresh"
	outcomeRefreshed   = "refreshed"
	outcomeCoalesced   = "coalesced"
	outcomeStale       = "stale"
	outcomeUnavailable = "unavailable"
)

// DefaultRefreshTimeout bounds a single fetch when Options leaves it unset.
const DefaultRefreshTimeout = 30 * time.Second

// Fetcher loads a complete snapshot from the backing store.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Options configure a Cache.
type Options struct {
	// Clock defaults to the real clock.
	Clock clockwork.Clock
	// Location is where midnight is computed. Defaults to time.Local.
	Location *time.Location
	// RefreshTimeout bounds each fetch. Defaults to DefaultRefreshTimeout.
	RefreshTimeout time.Duration
}

// Status describes a cache for readiness reporting.
type Status struct {
	Name        string    `json:"name"`
	HasSnapshot bool      `json:"has_snapshot"`
	CapturedAt  time.Time `json:"captured_at,omitempty"`
	Expired     bool      `json:"expired"`
	Refreshing  bool      `json:"refreshing"`
	Generation  uint64    `json:"generation"`
}

type entry[T any] struct {
	value      T
	capturedAt time.Time
	gen        uint64
}

// flight is one in-progress fetch. val and err are written before done is
// closed and are read-only afterwards.
type flight[T any] struct {
	gen  uint64
	done chan struct{}
	val  T
	err  error
}

// Cache is a refresh-gated snapshot cache. The zero value is not usable; use
// New.
type Cache[T any] struct {
	name    string
	fetch   Fetcher[T]
	clock   clockwork.Clock
	loc     *time.Location
	timeout time.Duration

	mu     sync.Mutex
	entry  *entry[T]
	flight *flight[T]
	gen    uint64
}

// New creates an empty cache. Nothing is fetched until the first Get or Prime.
func New[T any](name string, fetch Fetcher[T], opts Options) *Cache[T] {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	return &Cache[T]{
		name:    name,
		fetch:   fetch,
		clock:   opts.Clock,
		loc:     opts.Location,
		timeout: opts.RefreshTimeout,
	}
}

// Name returns the cache's registry name.
func (c *Cache[T]) Name() string {
	return c.name
}

// Get returns the current snapshot, refreshing it first when it has expired.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	if c.freshLocked(c.clock.Now()) {
		v := c.entry.value
		c.mu.Unlock()
		metrics.RecordSnapshotGet(c.name, outcomeFresh)
		return v, nil
	}
	f, started := c.joinOrStartLocked(ctx)
	c.mu.Unlock()

	outcome := outcomeCoalesced
	if started {
		outcome = outcomeRefreshed
	}

	select {
	case <-f.done:
	case <-ctx.Done():
		return c.fallback(ctx, ctx.Err())
	}

	if f.err != nil {
		return c.fallback(ctx, f.err)
	}
	metrics.RecordSnapshotGet(c.name, outcome)
	return f.val, nil
}

// Refresh fetches a new snapshot regardless of expiry, joining a flight that
// is already running for the current generation. Unlike Get it reports fetch
// failures instead of serving stale data.
func (c *Cache[T]) Refresh(ctx context.Context) (T, error) {
	c.mu.Lock()
	f, _ := c.joinOrStartLocked(ctx)
	c.mu.Unlock()

	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Prime performs the first fetch eagerly. Startup should fail when it does.
func (c *Cache[T]) Prime(ctx context.Context) error {
	if _, err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("prime %s cache: %w", c.name, err)
	}
	return nil
}

// Invalidate expires the current snapshot. The next Get refreshes
// synchronously and flights started before this call are not reused.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
}

// Status reports the cache state without triggering a refresh.
func (c *Cache[T]) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		Name:       c.name,
		Refreshing: c.flight != nil,
		Generation: c.gen,
	}
	if c.entry != nil {
		st.HasSnapshot = true
		st.CapturedAt = c.entry.capturedAt
	}
	st.Expired = !c.freshLocked(c.clock.Now())
	return st
}

// Midnight returns the start of the day containing t in the cache location.
func (c *Cache[T]) Midnight(t time.Time) time.Time {
	return Midnight(t, c.loc)
}

// Midnight returns the start of the day containing t in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func (c *Cache[T]) freshLocked(now time.Time) bool {
	if c.entry == nil || c.entry.gen < c.gen {
		return false
	}
	return !c.entry.capturedAt.Before(c.Midnight(now))
}

// joinOrStartLocked returns the running flight when it started under the
// current generation, otherwise it starts a new one.
func (c *Cache[T]) joinOrStartLocked(ctx context.Context) (*flight[T], bool) {
	if f := c.flight; f != nil && f.gen == c.gen {
		return f, false
	}
	f := &flight[T]{gen: c.gen, done: make(chan struct{})}
	c.flight = f
	go c.run(ctx, f)
	return f, true
}

func (c *Cache[T]) run(parent context.Context, f *flight[T]) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.timeout)
	defer cancel()

	start := c.clock.Now()
	val, err := c.fetchOnce(ctx)
	metrics.RecordSnapshotRefresh(c.name, c.clock.Since(start), start, err)

	c.mu.Lock()
	if c.flight == f {
		c.flight = nil
	}
	if err == nil && (c.entry == nil || f.gen >= c.entry.gen) {
		capturedAt := start
		if c.entry != nil && capturedAt.Before(c.entry.capturedAt) {
			capturedAt = c.entry.capturedAt
		}
		c.entry = &entry[T]{value: val, capturedAt: capturedAt, gen: f.gen}
	}
	f.val, f.err = val, err
	c.mu.Unlock()
	close(f.done)

	log := logging.Ctx(parent)
	if err != nil {
		log.Warn().Err(err).Str("cache", c.name).Msg("Snapshot refresh failed")
		return
	}
	log.Debug().Str("cache", c.name).Dur("duration", c.clock.Since(start)).Msg("Snapshot refreshed")
}

// fetchOnce runs the fetcher and enforces the refresh timeout even when the
// fetcher ignores its context.
func (c *Cache[T]) fetchOnce(ctx context.Context) (T, error) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("fetch panicked: %v", r)}
			}
		}()
		v, err := c.fetch(ctx)
		ch <- result{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("refresh timed out after %s: %w", c.timeout, ctx.Err())
	}
}

// fallback serves the previous snapshot after a failed or abandoned wait.
func (c *Cache[T]) fallback(ctx context.Context, cause error) (T, error) {
	c.mu.Lock()
	e := c.entry
	c.mu.Unlock()

	if e != nil {
		metrics.RecordSnapshotGet(c.name, outcomeStale)
		logging.Ctx(ctx).Debug().Str("cache", c.name).Time("captured_at", e.capturedAt).Msg("Serving stale snapshot")
		return e.value, nil
	}

	metrics.RecordSnapshotGet(c.name, outcomeUnavailable)
	var zero T
	if ctx.Err() != nil && errors.Is(cause, ctx.Err()) {
		return zero, cause
	}
	return zero, fmt.Errorf("%w: %s: %w", ErrUnavailable, c.name, cause)
}
