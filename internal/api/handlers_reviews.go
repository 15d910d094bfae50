// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/lanefinder/internal/auth"
	"github.com/tomtom215/lanefinder/internal/models"
	"github.com/tomtom215/lanefinder/internal/ratings"
)

// maxRecentReviews caps ?limit= on the recent reviews feed.
const maxRecentReviews = 100

// SubmitReviewRequest is the body of POST /api/v1/venues/{id}/reviews. The
// reviewer is always the authenticated caller.
type SubmitReviewRequest struct {
	Rating int    `json:"rating"`
	Title  string `json:"title,omitempty"`
	Body   string `json:"body,omitempty"`
}

// VenueReviews serves the cached reviews of one venue, newest first.
func (h *Handler) VenueReviews(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	all, err := h.deps.Venues.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !slices.ContainsFunc(all, func(v models.Venue) bool { return v.ID == id }) {
		NewResponseWriter(w, r).NotFound("venue not found")
		return
	}

	byVenue, err := h.deps.Reviews.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	list := byVenue[id]
	if list == nil {
		list = []models.Review{}
	}
	writeSnapshot(w, r, list, len(list), h.deps.Reviews.Status(), 0)
}

// RecentReviews serves the newest reviews across all venues.
func (h *Handler) RecentReviews(w http.ResponseWriter, r *http.Request) {
	recent, err := h.deps.RecentReviews.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	limit := getIntParam(r, "limit", len(recent), maxRecentReviews)
	if limit < len(recent) {
		recent = recent[:limit]
	}
	if recent == nil {
		recent = []models.Review{}
	}
	writeSnapshot(w, r, recent, len(recent), h.deps.RecentReviews.Status(), 0)
}

// SubmitReview creates or replaces the caller's review of a venue.
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Error(http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	if allowed, wait := h.deps.ReviewLimiter.Allow(claims.Subject); !allowed {
		NewResponseWriter(w, r).TooManyRequests("too many review submissions", wait)
		return
	}

	var req SubmitReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.deps.Ratings.Submit(r.Context(), ratings.Submission{
		VenueID:    chi.URLParam(r, "id"),
		ReviewerID: claims.Subject,
		Rating:     req.Rating,
		Title:      req.Title,
		Body:       req.Body,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if res.Created {
		NewResponseWriter(w, r).Created(res)
		return
	}
	WriteSuccess(w, r, res)
}

// DeleteOwnReview removes the caller's review of a venue and returns the new
// aggregate.
func (h *Handler) DeleteOwnReview(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Error(http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	if allowed, wait := h.deps.ReviewLimiter.Allow(claims.Subject); !allowed {
		NewResponseWriter(w, r).TooManyRequests("too many review submissions", wait)
		return
	}

	agg, err := h.deps.Ratings.Delete(r.Context(), chi.URLParam(r, "id"), claims.Subject)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, agg)
}
