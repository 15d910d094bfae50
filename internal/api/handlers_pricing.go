// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"net/http"
	"strings"

	"github.com/tomtom215/lanefinder/internal/models"
)

// Pricing serves the daily pricing report with its precomputed extremes.
// ?state= narrows the city list to one state.
func (h *Handler) Pricing(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Pricing.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if state := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("state"))); state != "" {
		cities := make([]models.CityPrice, 0)
		for _, c := range snap.Cities {
			if c.State == state {
				cities = append(cities, c)
			}
		}
		// snap is shared with other readers; narrow a copy.
		narrowed := snap
		narrowed.Cities = cities
		snap = narrowed
	}
	writeSnapshot(w, r, snap, len(snap.States), h.deps.Pricing.Status(), h.deps.Config.Cache.VenuesMaxAge)
}
