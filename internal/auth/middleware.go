// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/lanefinder/internal/logging"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, code, message string)

func plainError(w http.ResponseWriter, _ *http.Request, status int, _, message string) {
	http.Error(w, message, status)
}

// Middleware verifies bearer tokens.
type Middleware struct {
	jwt     *JWTManager
	onError ErrorWriter
}

// NewMiddleware creates the middleware. onError may be nil.
func NewMiddleware(m *JWTManager, onError ErrorWriter) *Middleware {
	if onError == nil {
		onError = plainError
	}
	return &Middleware{jwt: m, onError: onError}
}

// Authenticate rejects requests without a valid bearer token and stores the
// verified claims in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="lanefinder"`)
			m.onError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			return
		}
		if m.jwt == nil {
			m.onError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication is not configured")
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token validation failed")
			w.Header().Set("WWW-Authenticate", `Bearer realm="lanefinder", error="invalid_token"`)
			m.onError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}

		ctx := logging.ContextWithUserID(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
	})
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*Claims)
	return c, ok && c != nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(token), nil
}
