// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package facets

import (
	"cmp"
	"slices"
	"strings"

	"github.com/tomtom215/lanefinder/internal/models"
)

// StateCity is a distinct (state, city) pair.
type StateCity struct {
	State string `json:"state"`
	City  string `json:"city"`
}

// StateCount is the number of matching venues in a state.
type StateCount struct {
	State string `json:"state"`
	Count int    `json:"count"`
}

// StatesWith returns the distinct non-empty states of venues matching pred,
// in order of first occurrence.
func StatesWith(venues []models.Venue, pred Predicate) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for i := range venues {
		v := &venues[i]
		if v.State == "" || !pred.match(v) {
			continue
		}
		if _, ok := seen[v.State]; ok {
			continue
		}
		seen[v.State] = struct{}{}
		out = append(out, v.State)
	}
	return out
}

// CitiesWith returns the distinct (state, city) pairs of venues matching pred,
// in order of first occurrence. Cities are compared case-insensitively and
// reported with the spelling first seen.
func CitiesWith(venues []models.Venue, pred Predicate) []StateCity {
	seen := make(map[StateCity]struct{})
	out := []StateCity{}
	for i := range venues {
		v := &venues[i]
		if v.State == "" || v.City == "" || !pred.match(v) {
			continue
		}
		key := StateCity{State: v.State, City: strings.ToLower(v.City)}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, StateCity{State: v.State, City: v.City})
	}
	return out
}

// SortedStatesWith is StatesWith in lexical order.
func SortedStatesWith(venues []models.Venue, pred Predicate) []string {
	out := StatesWith(venues, pred)
	slices.Sort(out)
	return out
}

// SortedCitiesWith is CitiesWith ordered by state, then city.
func SortedCitiesWith(venues []models.Venue, pred Predicate) []StateCity {
	out := CitiesWith(venues, pred)
	slices.SortFunc(out, func(a, b StateCity) int {
		return cmp.Or(cmp.Compare(a.State, b.State), cmp.Compare(a.City, b.City))
	})
	return out
}

// CountByState counts venues matching pred per state, ordered by state.
func CountByState(venues []models.Venue, pred Predicate) []StateCount {
	counts := make(map[string]int)
	for i := range venues {
		v := &venues[i]
		if v.State != "" && pred.match(v) {
			counts[v.State]++
		}
	}
	out := make([]StateCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, StateCount{State: s, Count: n})
	}
	slices.SortFunc(out, func(a, b StateCount) int { return cmp.Compare(a.State, b.State) })
	return out
}

// Filter returns the venues matching pred, preserving order. The result
// shares no backing array with venues.
func Filter(venues []models.Venue, pred Predicate) []models.Venue {
	out := make([]models.Venue, 0, len(venues))
	for i := range venues {
		if pred.match(&venues[i]) {
			out = append(out, venues[i])
		}
	}
	return out
}

// VenuesIn returns the venues in a state and, when city is non-empty, a city.
func VenuesIn(venues []models.Venue, state, city string) []models.Venue {
	if city == "" {
		return Filter(venues, InState(state))
	}
	return Filter(venues, InCity(state, city))
}
