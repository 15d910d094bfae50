// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lanefinder/internal/models"
)

func decode[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode document: %w", err)
	}
	return v, nil
}

// compareVenues orders venues by state, city, name and finally ID.
func compareVenues(a, b models.Venue) int {
	return cmp.Or(
		cmp.Compare(a.State, b.State),
		cmp.Compare(strings.ToLower(a.City), strings.ToLower(b.City)),
		cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
		cmp.Compare(a.ID, b.ID),
	)
}

// newestFirst orders reviews by UpdatedAt descending, then reviewer.
func newestFirst(a, b models.Review) int {
	if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ReviewerID, b.ReviewerID)
}

// FetchAllVenues reads every venue, ordered by state, city and name.
func (s *Store) FetchAllVenues(ctx context.Context) ([]models.Venue, error) {
	var venues []models.Venue
	err := s.kv.Scan(ctx, VenuePrefix, func(key string, value []byte) error {
		v, err := decode[models.Venue](value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		venues = append(venues, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch venues: %w", err)
	}
	slices.SortFunc(venues, compareVenues)
	return venues, nil
}

// GetVenue reads one venue straight from the backend.
func (s *Store) GetVenue(ctx context.Context, id string) (*models.Venue, error) {
	data, err := s.kv.Get(ctx, VenueKey(id))
	if err != nil {
		return nil, err
	}
	v, err := decode[models.Venue](data)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetReview reads one review.
func (s *Store) GetReview(ctx context.Context, venueID, reviewerID string) (*models.Review, error) {
	data, err := s.kv.Get(ctx, ReviewKey(venueID, reviewerID))
	if err != nil {
		return nil, err
	}
	r, err := decode[models.Review](data)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FetchReviews returns up to limit reviews of one venue, newest first.
// limit <= 0 returns all of them.
func (s *Store) FetchReviews(ctx context.Context, venueID string, limit int) ([]models.Review, error) {
	reviews, err := s.scanReviews(ctx, VenueReviewsPrefix(venueID))
	if err != nil {
		return nil, err
	}
	slices.SortFunc(reviews, newestFirst)
	return truncate(reviews, limit), nil
}

// FetchAllReviews groups reviews by venue, keeping the newest perVenue of each.
func (s *Store) FetchAllReviews(ctx context.Context, perVenue int) (models.ReviewsByVenue, error) {
	reviews, err := s.scanReviews(ctx, ReviewPrefix)
	if err != nil {
		return nil, err
	}
	byVenue := make(models.ReviewsByVenue)
	for _, r := range reviews {
		byVenue[r.VenueID] = append(byVenue[r.VenueID], r)
	}
	for id, list := range byVenue {
		slices.SortFunc(list, newestFirst)
		byVenue[id] = truncate(list, perVenue)
	}
	return byVenue, nil
}

// FetchRecentReviews returns the newest limit reviews across all venues.
func (s *Store) FetchRecentReviews(ctx context.Context, limit int) ([]models.Review, error) {
	reviews, err := s.scanReviews(ctx, ReviewPrefix)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(reviews, newestFirst)
	return truncate(reviews, limit), nil
}

func (s *Store) scanReviews(ctx context.Context, prefix string) ([]models.Review, error) {
	var reviews []models.Review
	err := s.kv.Scan(ctx, prefix, func(key string, value []byte) error {
		r, err := decode[models.Review](value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		reviews = append(reviews, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch reviews: %w", err)
	}
	return reviews, nil
}

func truncate[T any](list []T, limit int) []T {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}

// GetVenueTx reads a venue inside a transaction.
func GetVenueTx(txn Txn, id string) (*models.Venue, error) {
	data, err := txn.Get(VenueKey(id))
	if err != nil {
		return nil, err
	}
	v, err := decode[models.Venue](data)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// PutVenueTx writes a venue inside a transaction.
func PutVenueTx(txn Txn, v *models.Venue) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode venue: %w", err)
	}
	return txn.Set(VenueKey(v.ID), data)
}

// GetReviewTx reads a review inside a transaction. A missing review yields
// (nil, nil) so callers can branch on create versus update.
func GetReviewTx(txn Txn, venueID, reviewerID string) (*models.Review, error) {
	data, err := txn.Get(ReviewKey(venueID, reviewerID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r, err := decode[models.Review](data)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// PutReviewTx writes a review inside a transaction.
func PutReviewTx(txn Txn, r *models.Review) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode review: %w", err)
	}
	return txn.Set(ReviewKey(r.VenueID, r.ReviewerID), data)
}

// DeleteReviewTx removes a review inside a transaction.
func DeleteReviewTx(txn Txn, venueID, reviewerID string) error {
	return txn.Delete(ReviewKey(venueID, reviewerID))
}

// ListReviewsTx reads every review of a venue inside a transaction.
func ListReviewsTx(txn Txn, venueID string) ([]models.Review, error) {
	keys, err := txn.Keys(VenueReviewsPrefix(venueID))
	if err != nil {
		return nil, err
	}
	reviews := make([]models.Review, 0, len(keys))
	for _, key := range keys {
		data, err := txn.Get(key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		r, err := decode[models.Review](data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}

// SlugOwnerTx returns the venue ID holding slug, or "" when it is free.
func SlugOwnerTx(txn Txn, slug string) (string, error) {
	data, err := txn.Get(SlugKey(slug))
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ClaimSlugTx records venueID as the holder of slug.
func ClaimSlugTx(txn Txn, slug, venueID string) error {
	return txn.Set(SlugKey(slug), []byte(venueID))
}

// ReleaseSlugTx frees slug if venueID still holds it.
func ReleaseSlugTx(txn Txn, slug, venueID string) error {
	owner, err := SlugOwnerTx(txn, slug)
	if err != nil || owner != venueID {
		return err
	}
	return txn.Delete(SlugKey(slug))
}
