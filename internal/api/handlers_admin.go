// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/lanefinder/internal/logging"
)

// AdminCaches lists the registered caches and their state.
func (h *Handler) AdminCaches(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	WriteSuccess(w, r, h.deps.Registry.Statuses())
}

// AdminInvalidateCache expires a cache on this instance and every instance
// listening on the event bus.
func (h *Handler) AdminInvalidateCache(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.deps.Registry.Invalidate(r.Context(), name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("cache", name).Msg("Cache invalidated by admin")
	WriteSuccess(w, r, map[string]string{"cache": name, "status": "invalidated"})
}

// AdminReconcileVenue recomputes a venue's rating aggregate from its reviews
// and repairs it if it has drifted.
func (h *Handler) AdminReconcileVenue(w http.ResponseWriter, r *http.Request) {
	rec, err := h.deps.Ratings.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, rec)
}
