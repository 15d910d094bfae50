// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package ratings

import "github.com/tomtom215/lanefinder/internal/models"

// Add returns agg after a new rating r.
func Add(agg models.RatingAggregate, r int) models.RatingAggregate {
	n := agg.ReviewCount
	if n < 0 {
		n = 0
	}
	next := n + 1
	return normalize(models.RatingAggregate{
		AverageRating: (agg.AverageRating*float64(n) + float64(r)) / float64(next),
		ReviewCount:   next,
	})
}

// Replace returns agg after an existing rating old was edited to r. The count
// is unchanged. An aggregate that does not account for the old rating is
// treated as holding only the new one.
func Replace(agg models.RatingAggregate, old, r int) models.RatingAggregate {
	n := agg.ReviewCount
	if n <= 0 {
		return Add(models.RatingAggregate{}, r)
	}
	return normalize(models.RatingAggregate{
		AverageRating: (agg.AverageRating*float64(n) + float64(r-old)) / float64(n),
		ReviewCount:   n,
	})
}

// Remove returns agg after the rating old was deleted.
func Remove(agg models.RatingAggregate, old int) models.RatingAggregate {
	next := agg.ReviewCount - 1
	if next <= 0 {
		return models.RatingAggregate{}
	}
	return normalize(models.RatingAggregate{
		AverageRating: (agg.AverageRating*float64(agg.ReviewCount) - float64(old)) / float64(next),
		ReviewCount:   next,
	})
}

// Recompute returns the exact aggregate of reviews.
func Recompute(reviews []models.Review) models.RatingAggregate {
	if len(reviews) == 0 {
		return models.RatingAggregate{}
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return normalize(models.RatingAggregate{
		AverageRating: float64(sum) / float64(len(reviews)),
		ReviewCount:   len(reviews),
	})
}

// normalize clamps the average into the rating range to bound floating drift.
func normalize(agg models.RatingAggregate) models.RatingAggregate {
	if agg.ReviewCount <= 0 {
		return models.RatingAggregate{}
	}
	switch {
	case agg.AverageRating < models.MinRating:
		agg.AverageRating = models.MinRating
	case agg.AverageRating > models.MaxRating:
		agg.AverageRating = models.MaxRating
	}
	return agg
}
