// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/lanefinder/internal/auth"
	"github.com/tomtom215/lanefinder/internal/authz"
	"github.com/tomtom215/lanefinder/internal/middleware"
)

// Router wires the handler into a chi route tree.
type Router struct {
	handler       *Handler
	authn         *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. Authentication and authorization failures are
// rendered with the API envelope.
func NewRouter(handler *Handler, jwt *auth.JWTManager, enforcer *authz.Enforcer, mw *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		authn:         auth.NewMiddleware(jwt, WriteError),
		authz:         authz.NewMiddleware(enforcer, WriteError),
		chiMiddleware: NewChiMiddleware(mw),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	// Applied to every route, in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
		r.Route("/api/v1/health", func(r chi.Router) {
			r.Use(APISecurityHeaders())
			r.Get("/live", h.HealthLive)
			r.Get("/ready", h.HealthReady)
		})
	})

	r.With(router.chiMiddleware.RateLimit(), middleware.PrometheusMetrics).Get("/sitemap.xml", h.Sitemap)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		// Public reads.
		r.Get("/venues", h.ListVenues)
		r.Get("/venues/{id}", h.GetVenue)
		r.Get("/venues/{id}/reviews", h.VenueReviews)
		r.Get("/reviews/recent", h.RecentReviews)
		r.Get("/categories", h.Categories)
		r.Get("/facets/states", h.States)
		r.Get("/facets/cities", h.Cities)
		r.Get("/facets/state-counts", h.StateCounts)
		r.Get("/pricing", h.Pricing)

		// Writes: a verified token, then the role policy.
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitWrite())
			r.Use(router.authn.Authenticate)
			r.Use(router.authz.Authorize)

			r.Post("/venues", h.CreateVenue)
			r.Put("/venues/{id}", h.UpdateVenue)
			r.Post("/venues/{id}/reviews", h.SubmitReview)
			r.Delete("/venues/{id}/reviews/me", h.DeleteOwnReview)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/caches", h.AdminCaches)
				r.Post("/cache/{name}/invalidate", h.AdminInvalidateCache)
				r.Post("/venues/{id}/reconcile", h.AdminReconcileVenue)
			})
		})
	})

	return r
}
