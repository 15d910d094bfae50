// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package facets

import (
	"fmt"
	"regexp"
	"slices"
	"sync"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Registry maps category slugs (as used in URLs) to predicates. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	preds map[string]Predicate
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{preds: make(map[string]Predicate)}
}

// DefaultAmenities are the amenity tags registered as categories by
// NewDefaultRegistry.
var DefaultAmenities = []string{
	"leagues",
	"cosmic-bowling",
	"bar",
	"arcade",
	"snack-bar",
	"pro-shop",
	"accessible",
	"birthday-parties",
	"bumpers",
}

// NewDefaultRegistry returns a registry with one category per default amenity
// plus "top-rated" (average of 4 or more).
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range DefaultAmenities {
		r.MustRegister(a, HasAmenity(a))
	}
	r.MustRegister("top-rated", MinRating(4))
	return r
}

// Register adds or replaces a category.
func (r *Registry) Register(slug string, pred Predicate) error {
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("invalid category slug %q", slug)
	}
	if pred == nil {
		return fmt.Errorf("category %q: nil predicate", slug)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preds[slug] = pred
	return nil
}

// MustRegister is Register that panics on error, for static setup.
func (r *Registry) MustRegister(slug string, pred Predicate) {
	if err := r.Register(slug, pred); err != nil {
		panic(err)
	}
}

// Lookup returns the predicate for slug.
func (r *Registry) Lookup(slug string) (Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.preds[slug]
	return p, ok
}

// Slugs returns the registered slugs in sorted order.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.preds))
	for s := range r.preds {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}
