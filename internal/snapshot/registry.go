// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/metrics"
)

// Cache names used across the application.
const (
	Venues        = "venues"
	Reviews       = "reviews"
	RecentReviews = "recent-reviews"
	Pricing       = "pricing"
)

// Invalidation sources recorded in metrics.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// ErrUnknownCache is returned for a name that was never registered.
var ErrUnknownCache = errors.New("unknown cache")

// Managed is the type-erased view of a Cache held by a Registry.
type Managed interface {
	Name() string
	Invalidate()
	Prime(ctx context.Context) error
	Status() Status
}

// Invalidator expires a cache by name. Writers depend on this rather than on
// the registry itself.
type Invalidator interface {
	Invalidate(ctx context.Context, cacheID string) error
}

// Publisher fans an invalidation out to other instances.
type Publisher interface {
	PublishInvalidation(ctx context.Context, cacheID string) error
}

// Registry maps cache names to caches and propagates invalidations.
type Registry struct {
	mu        sync.RWMutex
	caches    map[string]Managed
	publisher Publisher
}

func NewRegistry() *Registry {
	return &Registry{caches: make(map[string]Managed)}
}

// Register adds c under its name, replacing any cache with the same name.
func (r *Registry) Register(c Managed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caches[c.Name()] = c
}

// SetPublisher installs the fan-out publisher. A nil publisher keeps
// invalidations local.
func (r *Registry) SetPublisher(p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publisher = p
}

// Names returns the registered cache names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) lookup(name string) (Managed, Publisher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caches[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownCache, name)
	}
	return c, r.publisher, nil
}

// Invalidate expires the named cache locally and publishes the invalidation
// to other instances. A failed publish is logged and does not fail the call:
// the local cache is already expired and remote snapshots still expire at
// midnight.
func (r *Registry) Invalidate(ctx context.Context, cacheID string) error {
	c, pub, err := r.lookup(cacheID)
	if err != nil {
		return err
	}
	c.Invalidate()
	metrics.RecordSnapshotInvalidation(cacheID, SourceLocal)

	if pub != nil {
		if err := pub.PublishInvalidation(ctx, cacheID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("cache", cacheID).Msg("Failed to publish cache invalidation")
		}
	}
	return nil
}

// InvalidateLocal expires the named cache without publishing. Event
// subscribers use it for invalidations received from other instances.
func (r *Registry) InvalidateLocal(cacheID, source string) error {
	c, _, err := r.lookup(cacheID)
	if err != nil {
		return err
	}
	c.Invalidate()
	metrics.RecordSnapshotInvalidation(cacheID, source)
	return nil
}

// PrimeAll fetches every registered cache concurrently and returns the first
// error. A failing cache does not cut the others short.
func (r *Registry) PrimeAll(ctx context.Context) error {
	r.mu.RLock()
	caches := make([]Managed, 0, len(r.caches))
	for _, c := range r.caches {
		caches = append(caches, c)
	}
	r.mu.RUnlock()

	var g errgroup.Group
	for _, c := range caches {
		g.Go(func() error {
			return c.Prime(ctx)
		})
	}
	return g.Wait()
}

// Statuses reports every registered cache, sorted by name.
func (r *Registry) Statuses() []Status {
	names := r.Names()
	out := make([]Status, 0, len(names))
	for _, name := range names {
		if c, _, err := r.lookup(name); err == nil {
			out = append(out, c.Status())
		}
	}
	return out
}
