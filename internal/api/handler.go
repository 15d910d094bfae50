// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/lanefinder/internal/config"
	"github.com/tomtom215/lanefinder/internal/facets"
	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/models"
	"github.com/tomtom215/lanefinder/internal/ratings"
	"github.com/tomtom215/lanefinder/internal/snapshot"
	"github.com/tomtom215/lanefinder/internal/venues"
)

// Snapshot is a read-mostly cached view of the store.
type Snapshot[T any] interface {
	Get(ctx context.Context) (T, error)
	Status() snapshot.Status
}

// VenueService performs venue reads and writes that bypass the snapshots.
type VenueService interface {
	Get(ctx context.Context, id string) (*models.Venue, error)
	Create(ctx context.Context, in models.Venue) (*models.Venue, error)
	Update(ctx context.Context, actor venues.Actor, id string, patch models.VenuePatch) (*models.Venue, error)
}

// RatingService applies review writes.
type RatingService interface {
	Submit(ctx context.Context, sub ratings.Submission) (*ratings.Result, error)
	Delete(ctx context.Context, venueID, reviewerID string) (models.RatingAggregate, error)
	Reconcile(ctx context.Context, venueID string) (*ratings.Reconciliation, error)
}

// CacheRegistry is the admin and readiness view of the snapshot caches.
type CacheRegistry interface {
	Invalidate(ctx context.Context, cacheID string) error
	Statuses() []snapshot.Status
}

// Dependencies are the collaborators a Handler serves requests from.
type Dependencies struct {
	Venues        Snapshot[[]models.Venue]
	Reviews       Snapshot[models.ReviewsByVenue]
	RecentReviews Snapshot[[]models.Review]
	Pricing       Snapshot[models.PricingSnapshot]

	VenueService VenueService
	Ratings      RatingService
	Registry     CacheRegistry
	Categories   *facets.Registry

	// ReviewLimiter throttles review writes per reviewer. Nil disables it.
	ReviewLimiter *ReviewLimiter

	Config *config.Config
	Clock  clockwork.Clock
}

// Handler serves the Lanefinder HTTP API.
type Handler struct {
	deps      Dependencies
	startTime time.Time
}

// NewHandler creates a Handler. Categories falls back to the default
// vocabulary when nil.
func NewHandler(deps Dependencies) (*Handler, error) {
	switch {
	case deps.Venues == nil, deps.Reviews == nil, deps.RecentReviews == nil, deps.Pricing == nil:
		return nil, errors.New("api: every snapshot must be provided")
	case deps.VenueService == nil, deps.Ratings == nil, deps.Registry == nil:
		return nil, errors.New("api: venue service, ratings and registry are required")
	case deps.Config == nil:
		return nil, errors.New("api: config is required")
	}
	if deps.Categories == nil {
		deps.Categories = facets.NewDefaultRegistry()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Handler{deps: deps, startTime: deps.Clock.Now()}, nil
}

// writeSnapshot writes a cacheable response. The ETag covers data only, so
// an unchanged snapshot revalidates with 304 across envelopes.
func writeSnapshot(w http.ResponseWriter, r *http.Request, data interface{}, count int, status snapshot.Status, maxAge time.Duration) {
	payload, err := json.Marshal(data)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal snapshot response")
		NewResponseWriter(w, r).InternalError("internal error")
		return
	}

	etag := generateETag(payload)
	publicCache(w, maxAge)
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	meta := &APIMeta{Count: &count}
	if status.HasSnapshot {
		captured := status.CapturedAt.UTC()
		meta.CapturedAt = &captured
	}
	NewResponseWriter(w, r).SuccessWithMeta(json.RawMessage(payload), meta)
}

// categoryPredicate resolves the optional ?category= filter.
func (h *Handler) categoryPredicate(r *http.Request) (facets.Predicate, error) {
	slug := r.URL.Query().Get("category")
	if slug == "" {
		return facets.Any(), nil
	}
	pred, ok := h.deps.Categories.Lookup(slug)
	if !ok {
		return nil, errUnknownCategory
	}
	return pred, nil
}
