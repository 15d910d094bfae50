// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"net/http"
	"strings"

	"github.com/tomtom215/lanefinder/internal/facets"
)

// Categories lists the registered category slugs.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	slugs := h.deps.Categories.Slugs()
	publicCache(w, h.deps.Config.Cache.VenuesMaxAge)
	NewResponseWriter(w, r).SuccessWithMeta(slugs, &APIMeta{Count: intPtr(len(slugs))})
}

// States lists the states that have at least one venue in ?category=, in
// snapshot order.
func (h *Handler) States(w http.ResponseWriter, r *http.Request) {
	pred, err := h.categoryPredicate(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	all, err := h.deps.Venues.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	states := facets.StatesWith(all, pred)
	writeSnapshot(w, r, states, len(states), h.deps.Venues.Status(), h.deps.Config.Cache.VenuesMaxAge)
}

// Cities lists the (state, city) pairs with at least one venue in
// ?category=, optionally within ?state=.
func (h *Handler) Cities(w http.ResponseWriter, r *http.Request) {
	pred, err := h.categoryPredicate(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if state := strings.TrimSpace(r.URL.Query().Get("state")); state != "" {
		pred = facets.And(pred, facets.InState(state))
	}
	all, err := h.deps.Venues.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	cities := facets.CitiesWith(all, pred)
	writeSnapshot(w, r, cities, len(cities), h.deps.Venues.Status(), h.deps.Config.Cache.VenuesMaxAge)
}

// StateCounts reports how many venues in ?category= each state has.
func (h *Handler) StateCounts(w http.ResponseWriter, r *http.Request) {
	pred, err := h.categoryPredicate(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	all, err := h.deps.Venues.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	counts := facets.CountByState(all, pred)
	writeSnapshot(w, r, counts, len(counts), h.deps.Venues.Status(), h.deps.Config.Cache.VenuesMaxAge)
}

func intPtr(n int) *int {
	return &n
}
