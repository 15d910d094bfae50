// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package store

import "strings"

// Key layout:
//
//	venue:{venueID}
//	review:{venueID}:{reviewerID}
//	report:{YYYY-MM-DD}:national|states|cities
const (
	VenuePrefix  = "venue:"
	ReviewPrefix = "review:"
	ReportPrefix = "report:"
	SlugPrefix   = "slug:"
)

// Report parts.
const (
	ReportNational = "national"
	ReportStates   = "states"
	ReportCities   = "cities"
)

// VenueKey returns the key of a venue document.
func VenueKey(venueID string) string {
	return VenuePrefix + venueID
}

// ReviewKey returns the key of one reviewer's review of a venue.
func ReviewKey(venueID, reviewerID string) string {
	return ReviewPrefix + venueID + ":" + reviewerID
}

// VenueReviewsPrefix covers every review of one venue.
func VenueReviewsPrefix(venueID string) string {
	return ReviewPrefix + venueID + ":"
}

// SlugKey returns the key claiming a venue slug. Its value is the venue ID.
func SlugKey(slug string) string {
	return SlugPrefix + slug
}

// ReportKey returns the key of one part of a daily report.
func ReportKey(date, part string) string {
	return ReportPrefix + date + ":" + part
}

// ValidID reports whether id can be embedded in a key. IDs must be non-empty
// and free of the ':' separator and glob metacharacters.
func ValidID(id string) bool {
	return id != "" && len(id) <= 128 && !strings.ContainsAny(id, ":*?[]\\ \t\r\n")
}
