// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package main

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/lanefinder/internal/config"
	"github.com/tomtom215/lanefinder/internal/models"
	"github.com/tomtom215/lanefinder/internal/pricing"
	"github.com/tomtom215/lanefinder/internal/snapshot"
	"github.com/tomtom215/lanefinder/internal/store"
)

// warmDelay lets a midnight warm-up start after the day boundary has passed
// on every instance.
const warmDelay = 5 * time.Second

// cacheSet holds the daily snapshots and the registry that invalidates them.
type cacheSet struct {
	registry *snapshot.Registry
	venues   *snapshot.Cache[[]models.Venue]
	reviews  *snapshot.Cache[models.ReviewsByVenue]
	recent   *snapshot.Cache[[]models.Review]
	pricing  *snapshot.Cache[models.PricingSnapshot]
}

// buildCaches creates every snapshot over st. Each fetch goes through its own
// circuit breaker so a failing store trips only that cache.
func buildCaches(st *store.Store, cfg *config.Config, clock clockwork.Clock) *cacheSet {
	loc := cfg.Cache.Location()
	opts := snapshot.Options{Clock: clock, Location: loc, RefreshTimeout: cfg.Cache.RefreshTimeout}
	breaker := snapshot.BreakerSettings{Failures: cfg.Cache.BreakerFailures, Timeout: cfg.Cache.BreakerTimeout}

	perVenue := cfg.Cache.ReviewsPerVenue
	recentLimit := cfg.Cache.RecentReviewsLimit

	builder := pricing.NewBuilder(st, pricing.Options{
		Clock:           clock,
		Location:        loc,
		LookbackDays:    cfg.Pricing.LookbackDays,
		ExcludedRegions: cfg.Pricing.ExcludedRegions,
	})

	c := &cacheSet{
		registry: snapshot.NewRegistry(),
		venues: snapshot.New[[]models.Venue](snapshot.Venues,
			snapshot.WithBreaker(snapshot.Venues, breaker, st.FetchAllVenues), opts),
		reviews: snapshot.New[models.ReviewsByVenue](snapshot.Reviews,
			snapshot.WithBreaker(snapshot.Reviews, breaker, func(ctx context.Context) (models.ReviewsByVenue, error) {
				return st.FetchAllReviews(ctx, perVenue)
			}), opts),
		recent: snapshot.New[[]models.Review](snapshot.RecentReviews,
			snapshot.WithBreaker(snapshot.RecentReviews, breaker, func(ctx context.Context) ([]models.Review, error) {
				return st.FetchRecentReviews(ctx, recentLimit)
			}), opts),
		pricing: pricing.NewCache(builder, breaker, opts),
	}
	c.registry.Register(c.venues)
	c.registry.Register(c.reviews)
	c.registry.Register(c.recent)
	c.registry.Register(c.pricing)
	return c
}

func (c *cacheSet) warmer(clock clockwork.Clock, loc *time.Location) *snapshot.Warmer {
	return snapshot.NewWarmer(c.registry, clock, loc, warmDelay)
}
