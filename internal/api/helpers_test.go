// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/lanefinder/internal/auth"
	"github.com/tomtom215/lanefinder/internal/authz"
	"github.com/tomtom215/lanefinder/internal/config"
	"github.com/tomtom215/lanefinder/internal/models"
	"github.com/tomtom215/lanefinder/internal/pricing"
	"github.com/tomtom215/lanefinder/internal/ratings"
	"github.com/tomtom215/lanefinder/internal/snapshot"
	"github.com/tomtom215/lanefinder/internal/store"
	"github.com/tomtom215/lanefinder/internal/store/storetest"
	"github.com/tomtom215/lanefinder/internal/venues"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

var testNow = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

// testEnv is a complete API over an in-memory store.
type testEnv struct {
	store    *store.Store
	registry *snapshot.Registry
	clock    *clockwork.FakeClock
	jwt      *auth.JWTManager
	handler  *Handler
	server   http.Handler
}

// envResponse mirrors APIResponse with the payload left raw.
type envResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func seedVenues() []models.Venue {
	return []models.Venue{
		{
			ID: "v1", Name: "Sunset Lanes", Slug: "sunset-lanes-austin-tx", City: "Austin", State: "TX",
			OwnerID: "owner-1", Amenities: []string{"leagues", "bar"}, Lanes: 24,
			CreatedAt: testNow.Add(-48 * time.Hour), UpdatedAt: testNow.Add(-48 * time.Hour),
		},
		{
			ID: "v2", Name: "Cosmic Bowl", Slug: "cosmic-bowl-dallas-tx", City: "Dallas", State: "TX",
			OwnerID: "owner-2", Amenities: []string{"cosmic-bowling", "arcade"},
			AverageRating: 4.5, ReviewCount: 2,
			CreatedAt: testNow.Add(-48 * time.Hour), UpdatedAt: testNow.Add(-24 * time.Hour),
		},
		{
			ID: "v3", Name: "Rose City Lanes", Slug: "rose-city-lanes-portland-or", City: "Portland", State: "OR",
			Amenities: []string{"leagues"},
			CreatedAt: testNow.Add(-48 * time.Hour), UpdatedAt: testNow.Add(-48 * time.Hour),
		},
	}
}

func newTestEnv(t *testing.T, configure ...func(*Dependencies)) *testEnv {
	t.Helper()

	s := storetest.New(t)
	storetest.PutVenues(t, s, seedVenues()...)

	clock := clockwork.NewFakeClockAt(testNow)
	opts := snapshot.Options{Clock: clock, Location: time.UTC, RefreshTimeout: 5 * time.Second}

	registry := snapshot.NewRegistry()
	venueCache := snapshot.New[[]models.Venue](snapshot.Venues, s.FetchAllVenues, opts)
	reviewCache := snapshot.New[models.ReviewsByVenue](snapshot.Reviews, func(ctx context.Context) (models.ReviewsByVenue, error) {
		return s.FetchAllReviews(ctx, 50)
	}, opts)
	recentCache := snapshot.New[[]models.Review](snapshot.RecentReviews, func(ctx context.Context) ([]models.Review, error) {
		return s.FetchRecentReviews(ctx, 20)
	}, opts)
	pricingCache := pricing.NewCache(pricing.NewBuilder(s, pricing.Options{Clock: clock, Location: time.UTC}), snapshot.BreakerSettings{}, opts)
	registry.Register(venueCache)
	registry.Register(reviewCache)
	registry.Register(recentCache)
	registry.Register(pricingCache)

	cfg := config.Default()
	cfg.Security.JWTSecret = testSecret
	cfg.Server.PublicBaseURL = "https://lanes.example/"

	jwtManager, err := auth.NewJWTManager(&cfg.Security, clock)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{})
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	deps := Dependencies{
		Venues:        venueCache,
		Reviews:       reviewCache,
		RecentReviews: recentCache,
		Pricing:       pricingCache,
		VenueService:  venues.NewService(s, registry, clock),
		Ratings:       ratings.NewAggregator(s, registry, ratings.WithClock(clock)),
		Registry:      registry,
		Config:        cfg,
		Clock:         clock,
	}
	for _, fn := range configure {
		fn(&deps)
	}
	h, err := NewHandler(deps)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mw := ChiMiddlewareConfigFromSecurity(&cfg.Security)
	mw.RateLimitDisabled = true

	return &testEnv{
		store:    s,
		registry: registry,
		clock:    clock,
		jwt:      jwtManager,
		handler:  h,
		server:   NewRouter(h, jwtManager, enforcer, mw).SetupChi(),
	}
}

func (e *testEnv) token(t *testing.T, subject, role string) string {
	t.Helper()
	tok, err := e.jwt.GenerateToken(subject, role, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

// do sends a request; body is JSON-encoded unless it is already a string.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envResponse {
	t.Helper()
	var env envResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope (status %d, body %q): %v", rec.Code, rec.Body.String(), err)
	}
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("response not successful: status %d, error %+v", rec.Code, env.Error)
	}
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return out
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Success || env.Error == nil || env.Error.Code != code {
		t.Fatalf("error = %+v, want code %s", env.Error, code)
	}
}
