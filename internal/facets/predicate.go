// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

// Package facets derives browse indexes (states, cities, counts) from a venue
// snapshot. Every function is pure and linear in the number of venues, so
// indexes are recomputed per request instead of being cached.
package facets

import (
	"strings"

	"github.com/tomtom215/lanefinder/internal/models"
)

// Predicate selects venues. A nil Predicate matches everything.
type Predicate func(*models.Venue) bool

func (p Predicate) match(v *models.Venue) bool {
	return p == nil || p(v)
}

// Any matches every venue.
func Any() Predicate {
	return func(*models.Venue) bool { return true }
}

// HasAmenity matches venues tagged with amenity.
func HasAmenity(amenity string) Predicate {
	return func(v *models.Venue) bool { return v.HasAmenity(amenity) }
}

// InState matches venues in the two-letter state code (case-insensitive).
func InState(state string) Predicate {
	return func(v *models.Venue) bool { return strings.EqualFold(v.State, state) }
}

// InCity matches venues in the given state and city (case-insensitive).
func InCity(state, city string) Predicate {
	return func(v *models.Venue) bool {
		return strings.EqualFold(v.State, state) && strings.EqualFold(v.City, city)
	}
}

// MinRating matches reviewed venues whose average is at least min.
func MinRating(min float64) Predicate {
	return func(v *models.Venue) bool { return v.ReviewCount > 0 && v.AverageRating >= min }
}

// And matches venues that satisfy every predicate.
func And(preds ...Predicate) Predicate {
	return func(v *models.Venue) bool {
		for _, p := range preds {
			if !p.match(v) {
				return false
			}
		}
		return true
	}
}

// Or matches venues that satisfy at least one predicate.
func Or(preds ...Predicate) Predicate {
	return func(v *models.Venue) bool {
		for _, p := range preds {
			if p.match(v) {
				return true
			}
		}
		return false
	}
}

func Not(p Predicate) Predicate {
	return func(v *models.Venue) bool { return !p.match(v) }
}
