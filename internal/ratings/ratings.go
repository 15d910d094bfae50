// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

/*
Package ratings maintains each venue's running average rating.

Every operation is a single store transaction that reads the venue and the
reviewer's review, applies the incremental formula and writes both back.
Conflicting writers are retried by the store up to its attempt limit; a write
that still conflicts fails with ErrConflict and changes nothing.

	create:  n' = n+1   avg' = (avg*n + r) / n'
	update:  n' = n     avg' = (avg*n + (r - old)) / n
	delete:  n' = n-1   avg' = (avg*n - old) / n', or 0 when n' = 0

After a successful write the venue and review caches are invalidated.
*/
package ratings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/metrics"
	"github.com/tomtom215/lanefinder/internal/models"
	"github.com/tomtom215/lanefinder/internal/snapshot"
	"github.com/tomtom215/lanefinder/internal/store"
	"github.com/tomtom215/lanefinder/internal/validation"
)

var (
	ErrVenueNotFound  = errors.New("venue not found")
	ErrReviewNotFound = errors.New("review not found")
	// ErrConflict means every transaction attempt lost a race. Retrying later
	// is safe.
	ErrConflict   = errors.New("rating update conflict")
	ErrValidation = errors.New("invalid review")
)

// Operation names recorded in metrics.
const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpReconcile = "reconcile"
)

// Submission is a reviewer's rating of a venue. Submitting again for the same
// venue edits the existing review.
type Submission struct {
	VenueID    string `json:"venue_id" validate:"required,max=128"`
	ReviewerID string `json:"reviewer_id" validate:"required,max=128"`
	Rating     int    `json:"rating" validate:"min=1,max=5"`
	Title      string `json:"title" validate:"max=120"`
	Body       string `json:"body" validate:"max=5000"`
}

// Result is the outcome of a successful Submit.
type Result struct {
	Review    models.Review          `json:"review"`
	Aggregate models.RatingAggregate `json:"aggregate"`
	Created   bool                   `json:"created"`
}

// Reconciliation is the outcome of Reconcile.
type Reconciliation struct {
	VenueID string                 `json:"venue_id"`
	Before  models.RatingAggregate `json:"before"`
	After   models.RatingAggregate `json:"after"`
	Changed bool                   `json:"changed"`
}

// Aggregator applies review writes and keeps venue aggregates consistent.
type Aggregator struct {
	tx          store.Transactor
	invalidator snapshot.Invalidator
	clock       clockwork.Clock
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock sets the clock used for review timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(a *Aggregator) { a.clock = c }
}

// NewAggregator creates an Aggregator. invalidator may be nil.
func NewAggregator(tx store.Transactor, invalidator snapshot.Invalidator, opts ...Option) *Aggregator {
	a := &Aggregator{tx: tx, invalidator: invalidator, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit creates or updates the reviewer's review and the venue aggregate.
func (a *Aggregator) Submit(ctx context.Context, sub Submission) (*Result, error) {
	sub.Title = strings.TrimSpace(sub.Title)
	sub.Body = strings.TrimSpace(sub.Body)
	if err := validateSubmission(&sub); err != nil {
		metrics.RecordRatingOperation(OpCreate, err)
		return nil, err
	}

	var res Result
	err := a.tx.RunTransaction(ctx, func(txn store.Txn) error {
		venue, err := store.GetVenueTx(txn, sub.VenueID)
		if err != nil {
			return err
		}
		existing, err := store.GetReviewTx(txn, sub.VenueID, sub.ReviewerID)
		if err != nil {
			return err
		}

		now := a.clock.Now().UTC()
		review := models.Review{
			VenueID:    sub.VenueID,
			ReviewerID: sub.ReviewerID,
			Rating:     sub.Rating,
			Title:      sub.Title,
			Body:       sub.Body,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		agg := venue.Aggregate()
		if existing == nil {
			agg = Add(agg, sub.Rating)
		} else {
			review.CreatedAt = existing.CreatedAt
			agg = Replace(agg, existing.Rating, sub.Rating)
		}
		venue.SetAggregate(agg)
		venue.UpdatedAt = now

		if err := store.PutReviewTx(txn, &review); err != nil {
			return err
		}
		if err := store.PutVenueTx(txn, venue); err != nil {
			return err
		}
		res = Result{Review: review, Aggregate: agg, Created: existing == nil}
		return nil
	})

	op := OpUpdate
	if err == nil && res.Created {
		op = OpCreate
	}
	if err != nil {
		err = mapError(err)
		metrics.RecordRatingOperation(op, err)
		return nil, fmt.Errorf("submit review for %s: %w", sub.VenueID, err)
	}
	metrics.RecordRatingOperation(op, nil)

	logging.Ctx(ctx).Info().
		Str("venue_id", sub.VenueID).
		Str("reviewer_id", sub.ReviewerID).
		Bool("created", res.Created).
		Int("review_count", res.Aggregate.ReviewCount).
		Float64("average_rating", res.Aggregate.AverageRating).
		Msg("Review saved")

	a.invalidate(ctx, snapshot.Venues, snapshot.Reviews, snapshot.RecentReviews)
	return &res, nil
}

// Delete removes the reviewer's review and returns the new aggregate.
func (a *Aggregator) Delete(ctx context.Context, venueID, reviewerID string) (models.RatingAggregate, error) {
	if err := validateIDs(venueID, reviewerID); err != nil {
		metrics.RecordRatingOperation(OpDelete, err)
		return models.RatingAggregate{}, err
	}

	var agg models.RatingAggregate
	err := a.tx.RunTransaction(ctx, func(txn store.Txn) error {
		venue, err := store.GetVenueTx(txn, venueID)
		if err != nil {
			return err
		}
		existing, err := store.GetReviewTx(txn, venueID, reviewerID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrReviewNotFound
		}

		agg = Remove(venue.Aggregate(), existing.Rating)
		venue.SetAggregate(agg)
		venue.UpdatedAt = a.clock.Now().UTC()

		if err := store.DeleteReviewTx(txn, venueID, reviewerID); err != nil {
			return err
		}
		return store.PutVenueTx(txn, venue)
	})
	if err != nil {
		err = mapError(err)
		metrics.RecordRatingOperation(OpDelete, err)
		return models.RatingAggregate{}, fmt.Errorf("delete review for %s: %w", venueID, err)
	}
	metrics.RecordRatingOperation(OpDelete, nil)

	logging.Ctx(ctx).Info().
		Str("venue_id", venueID).
		Str("reviewer_id", reviewerID).
		Int("review_count", agg.ReviewCount).
		Msg("Review deleted")

	a.invalidate(ctx, snapshot.Venues, snapshot.Reviews, snapshot.RecentReviews)
	return agg, nil
}

// Reconcile recomputes a venue's aggregate from all of its reviews and
// repairs the stored aggregate when it has drifted.
func (a *Aggregator) Reconcile(ctx context.Context, venueID string) (*Reconciliation, error) {
	if !store.ValidID(venueID) {
		return nil, fmt.Errorf("%w: invalid venue id", ErrValidation)
	}

	var rec Reconciliation
	err := a.tx.RunTransaction(ctx, func(txn store.Txn) error {
		venue, err := store.GetVenueTx(txn, venueID)
		if err != nil {
			return err
		}
		reviews, err := store.ListReviewsTx(txn, venueID)
		if err != nil {
			return err
		}

		before := venue.Aggregate()
		after := Recompute(reviews)
		rec = Reconciliation{VenueID: venueID, Before: before, After: after, Changed: !Equal(before, after)}
		if !rec.Changed {
			return nil
		}
		venue.SetAggregate(after)
		venue.UpdatedAt = a.clock.Now().UTC()
		return store.PutVenueTx(txn, venue)
	})
	if err != nil {
		err = mapError(err)
		metrics.RecordRatingOperation(OpReconcile, err)
		return nil, fmt.Errorf("reconcile %s: %w", venueID, err)
	}
	metrics.RecordRatingOperation(OpReconcile, nil)

	if rec.Changed {
		logging.Ctx(ctx).Warn().
			Str("venue_id", venueID).
			Int("count_before", rec.Before.ReviewCount).
			Int("count_after", rec.After.ReviewCount).
			Float64("average_before", rec.Before.AverageRating).
			Float64("average_after", rec.After.AverageRating).
			Msg("Repaired drifted rating aggregate")
		a.invalidate(ctx, snapshot.Venues)
	}
	return &rec, nil
}

// Equal compares aggregates with a tolerance for floating-point drift.
func Equal(a, b models.RatingAggregate) bool {
	return a.ReviewCount == b.ReviewCount && math.Abs(a.AverageRating-b.AverageRating) < 1e-9
}

func (a *Aggregator) invalidate(ctx context.Context, caches ...string) {
	if a.invalidator == nil {
		return
	}
	for _, name := range caches {
		if err := a.invalidator.Invalidate(ctx, name); err != nil && !errors.Is(err, snapshot.ErrUnknownCache) {
			logging.Ctx(ctx).Warn().Err(err).Str("cache", name).Msg("Cache invalidation failed")
		}
	}
}

func validateSubmission(sub *Submission) error {
	if verr := validation.ValidateStruct(sub); verr != nil {
		return fmt.Errorf("%w: %w", ErrValidation, verr)
	}
	return validateIDs(sub.VenueID, sub.ReviewerID)
}

func validateIDs(venueID, reviewerID string) error {
	if !store.ValidID(venueID) {
		return fmt.Errorf("%w: invalid venue id", ErrValidation)
	}
	if !store.ValidID(reviewerID) {
		return fmt.Errorf("%w: invalid reviewer id", ErrValidation)
	}
	return nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrReviewNotFound), errors.Is(err, ErrVenueNotFound):
		return err
	case errors.Is(err, store.ErrNotFound):
		return ErrVenueNotFound
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}
