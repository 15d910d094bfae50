// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/lanefinder/internal/auth"
	"github.com/tomtom215/lanefinder/internal/facets"
	"github.com/tomtom215/lanefinder/internal/models"
	"github.com/tomtom215/lanefinder/internal/venues"
)

// CreateVenueRequest is the body of POST /api/v1/venues. Rating fields are
// not accepted; aggregates start at zero.
type CreateVenueRequest struct {
	Name      string   `json:"name"`
	Slug      string   `json:"slug,omitempty"`
	Address   string   `json:"address,omitempty"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	Zip       string   `json:"zip,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Website   string   `json:"website,omitempty"`
	OwnerID   string   `json:"owner_id,omitempty"`
	Amenities []string `json:"amenities,omitempty"`
	Lanes     int      `json:"lanes,omitempty"`
}

func (req *CreateVenueRequest) venue() models.Venue {
	return models.Venue{
		Name:      req.Name,
		Slug:      req.Slug,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		Zip:       req.Zip,
		Phone:     req.Phone,
		Website:   req.Website,
		OwnerID:   req.OwnerID,
		Amenities: req.Amenities,
		Lanes:     req.Lanes,
	}
}

// ListVenues serves the daily venue snapshot, optionally narrowed by
// ?category=, ?state=, ?city= and ?min_rating=.
func (h *Handler) ListVenues(w http.ResponseWriter, r *http.Request) {
	pred, err := h.categoryPredicate(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	q := r.URL.Query()
	if state := strings.ToUpper(strings.TrimSpace(q.Get("state"))); state != "" {
		if city := strings.TrimSpace(q.Get("city")); city != "" {
			pred = facets.And(pred, facets.InCity(state, city))
		} else {
			pred = facets.And(pred, facets.InState(state))
		}
	}
	if raw := q.Get("min_rating"); raw != "" {
		minRating, err := strconv.ParseFloat(raw, 64)
		if err != nil || minRating < models.MinRating || minRating > models.MaxRating {
			NewResponseWriter(w, r).BadRequest("min_rating must be a number between 1 and 5")
			return
		}
		pred = facets.And(pred, facets.MinRating(minRating))
	}

	all, err := h.deps.Venues.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	list := facets.Filter(all, pred)
	writeSnapshot(w, r, list, len(list), h.deps.Venues.Status(), h.deps.Config.Cache.VenuesMaxAge)
}

// GetVenue reads one venue straight from the store so owners see their edits
// immediately.
func (h *Handler) GetVenue(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	v, err := h.deps.VenueService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, v)
}

// CreateVenue adds a venue. Admin only, enforced by policy.
func (h *Handler) CreateVenue(w http.ResponseWriter, r *http.Request) {
	var req CreateVenueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	v, err := h.deps.VenueService.Create(r.Context(), req.venue())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/venues/"+v.ID)
	NewResponseWriter(w, r).Created(v)
}

// UpdateVenue edits a venue's descriptive fields. Policy admits owners and
// admins; the service checks that an owner owns this venue.
func (h *Handler) UpdateVenue(w http.ResponseWriter, r *http.Request) {
	var patch models.VenuePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeServiceError(w, r, err)
		return
	}

	v, err := h.deps.VenueService.Update(r.Context(), actorFrom(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, v)
}

func actorFrom(r *http.Request) venues.Actor {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return venues.Actor{}
	}
	return venues.Actor{ID: claims.Subject, Admin: claims.IsAdmin()}
}
