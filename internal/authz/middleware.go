// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package authz

import (
	"net/http"

	"github.com/tomtom215/lanefinder/internal/auth"
	"github.com/tomtom215/lanefinder/internal/logging"
)

// Middleware authorizes authenticated requests. It must run after
// auth.Middleware.Authenticate.
type Middleware struct {
	enforcer *Enforcer
	onError  auth.ErrorWriter
}

// NewMiddleware creates the middleware. onError may be nil.
func NewMiddleware(enforcer *Enforcer, onError auth.ErrorWriter) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, status int, _, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{enforcer: enforcer, onError: onError}
}

// Authorize checks the caller's role against the request method and path.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			m.onError(w, r, http.StatusForbidden, "FORBIDDEN", "no authentication context")
			return
		}

		allowed, err := m.enforcer.Enforce(claims.Role, r.URL.Path, r.Method)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
			m.onError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "authorization failed")
			return
		}
		if !allowed {
			logging.Ctx(r.Context()).Debug().
				Str("role", claims.Role).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("Request denied by policy")
			m.onError(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}
