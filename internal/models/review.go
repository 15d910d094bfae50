// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package models

import "time"

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is one reviewer's rating of one venue. A reviewer holds at most one
// review per venue; submitting again edits it.
type Review struct {
	VenueID    string    `json:"venue_id"`
	ReviewerID string    `json:"reviewer_id"`
	Rating     int       `json:"rating"`
	Title      string    `json:"title,omitempty"`
	Body       string    `json:"body,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ReviewsByVenue maps venue IDs to their newest reviews, newest first.
type ReviewsByVenue map[string][]Review
