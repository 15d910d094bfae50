// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package api

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/lanefinder/internal/auth"
	"github.com/tomtom215/lanefinder/internal/facets"
	"github.com/tomtom215/lanefinder/internal/models"
	"github.com/tomtom215/lanefinder/internal/ratings"
	"github.com/tomtom215/lanefinder/internal/snapshot"
	"github.com/tomtom215/lanefinder/internal/store/storetest"
)

func TestHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health/live", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("live status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	expectError(t, rec, http.StatusServiceUnavailable, ErrCodeServiceUnavailable)

	if err := env.store.PutReport(context.Background(), "2026-03-14", models.PriceAggregate{PerGame: 5, Samples: 1}, nil, nil); err != nil {
		t.Fatalf("PutReport: %v", err)
	}
	if err := env.registry.PrimeAll(context.Background()); err != nil {
		t.Fatalf("PrimeAll: %v", err)
	}
	env.clock.Advance(90 * time.Second)

	rec = env.do(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	report := decodeData[ReadinessReport](t, rec)
	if !report.Ready || len(report.Caches) != 4 {
		t.Fatalf("report = %+v", report)
	}
	for _, c := range report.Caches {
		if !c.HasSnapshot || c.AgeSeconds != 90 {
			t.Errorf("cache %s = %+v, want primed 90s ago", c.Name, c)
		}
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestListVenues(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"all", "", []string{"v3", "v1", "v2"}},
		{"category", "?category=leagues", []string{"v3", "v1"}},
		{"state", "?state=tx", []string{"v1", "v2"}},
		{"city", "?state=TX&city=dallas", []string{"v2"}},
		{"category and state", "?category=leagues&state=OR", []string{"v3"}},
		{"min rating", "?min_rating=4", []string{"v2"}},
		{"top rated", "?category=top-rated", []string{"v2"}},
		{"no match", "?category=bumpers", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/v1/venues"+tt.query, "", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Cache-Control"); got != "public, max-age=3600" {
				t.Errorf("Cache-Control = %q", got)
			}
			list := decodeData[[]models.Venue](t, rec)
			ids := make([]string, len(list))
			for i, v := range list {
				ids[i] = v.ID
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}

	expectError(t, env.do(t, http.MethodGet, "/api/v1/venues?category=curling", "", nil), http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, env.do(t, http.MethodGet, "/api/v1/venues?min_rating=9", "", nil), http.StatusBadRequest, ErrCodeBadRequest)
}

func TestListVenuesETag(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	first := env.do(t, http.MethodGet, "/api/v1/venues", "", nil)
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("no ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/venues", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified || rec.Body.Len() != 0 {
		t.Errorf("revalidation = %d with %d bytes, want 304 and no body", rec.Code, rec.Body.Len())
	}

	for _, header := range []string{`"stale", ` + etag, "*"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/venues", nil)
		req.Header.Set("If-None-Match", header)
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotModified {
			t.Errorf("If-None-Match %q = %d, want 304", header, rec.Code)
		}
	}
}

func TestListVenuesServesSnapshotUntilMidnight(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	if rec := env.do(t, http.MethodGet, "/api/v1/venues", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	// Written behind the service's back, so nothing invalidates.
	storetest.PutVenues(t, env.store, models.Venue{ID: "v9", Name: "Late Lanes", City: "Boise", State: "ID"})

	got := decodeData[[]models.Venue](t, env.do(t, http.MethodGet, "/api/v1/venues", "", nil))
	if len(got) != 3 {
		t.Errorf("same day: %d venues, want the 3 from the snapshot", len(got))
	}

	// The single venue read bypasses the snapshot.
	rec := env.do(t, http.MethodGet, "/api/v1/venues/v9", "", nil)
	if v := decodeData[models.Venue](t, rec); v.Name != "Late Lanes" {
		t.Errorf("GetVenue = %+v", v)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("GetVenue Cache-Control = %q", got)
	}

	env.clock.Advance(9*time.Hour + time.Second) // 00:00:01 the next day
	got = decodeData[[]models.Venue](t, env.do(t, http.MethodGet, "/api/v1/venues", "", nil))
	if len(got) != 4 {
		t.Errorf("after midnight: %d venues, want 4", len(got))
	}
}

func TestGetVenueNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	expectError(t, env.do(t, http.MethodGet, "/api/v1/venues/nope", "", nil), http.StatusNotFound, ErrCodeNotFound)
	expectError(t, env.do(t, http.MethodGet, "/api/v1/nothing-here", "", nil), http.StatusNotFound, ErrCodeNotFound)
}

func TestCreateVenue(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	body := CreateVenueRequest{Name: "Strike Zone", City: "Austin", State: "tx", Amenities: []string{"Bar"}, OwnerID: "owner-3"}

	expectError(t, env.do(t, http.MethodPost, "/api/v1/venues", "", body), http.StatusUnauthorized, ErrCodeUnauthorized)
	expectError(t, env.do(t, http.MethodPost, "/api/v1/venues", "not-a-jwt", body), http.StatusUnauthorized, ErrCodeUnauthorized)
	expectError(t, env.do(t, http.MethodPost, "/api/v1/venues", env.token(t, "owner-1", auth.RoleOwner), body), http.StatusForbidden, ErrCodeForbidden)

	// Prime the snapshot so the create has something to invalidate.
	if got := decodeData[[]models.Venue](t, env.do(t, http.MethodGet, "/api/v1/venues", "", nil)); len(got) != 3 {
		t.Fatalf("initial venues = %d", len(got))
	}

	admin := env.token(t, "admin-1", auth.RoleAdmin)
	rec := env.do(t, http.MethodPost, "/api/v1/venues", admin, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	v := decodeData[models.Venue](t, rec)
	if v.Slug != "strike-zone-austin-tx" || v.State != "TX" || v.ReviewCount != 0 {
		t.Errorf("created = %+v", v)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/v1/venues/"+v.ID {
		t.Errorf("Location = %q", loc)
	}

	if got := decodeData[[]models.Venue](t, env.do(t, http.MethodGet, "/api/v1/venues", "", nil)); len(got) != 4 {
		t.Errorf("venues after create = %d, want 4", len(got))
	}

	expectError(t, env.do(t, http.MethodPost, "/api/v1/venues", admin, CreateVenueRequest{Name: "X", City: "Austin", State: "ZZ"}),
		http.StatusBadRequest, ErrCodeValidationFailed)
	expectError(t, env.do(t, http.MethodPost, "/api/v1/venues", admin, `{"name":"X","average_rating":5}`),
		http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, env.do(t, http.MethodPost, "/api/v1/venues", admin, CreateVenueRequest{Name: "Other", City: "Austin", State: "TX", Slug: "strike-zone-austin-tx"}),
		http.StatusConflict, ErrCodeConflict)
}

func TestUpdateVenue(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	lanes := 30
	patch := models.VenuePatch{Lanes: &lanes}

	tests := []struct {
		name    string
		subject string
		role    string
		id      string
		status  int
	}{
		{"reviewer denied by policy", "someone", auth.RoleReviewer, "v1", http.StatusForbidden},
		{"owner of another venue", "owner-2", auth.RoleOwner, "v1", http.StatusForbidden},
		{"missing venue", "admin-1", auth.RoleAdmin, "nope", http.StatusNotFound},
		{"owner", "owner-1", auth.RoleOwner, "v1", http.StatusOK},
		{"admin", "admin-1", auth.RoleAdmin, "v2", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPut, "/api/v1/venues/"+tt.id, env.token(t, tt.subject, tt.role), patch)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status == http.StatusOK {
				if v := decodeData[models.Venue](t, rec); v.Lanes != 30 {
					t.Errorf("lanes = %d", v.Lanes)
				}
			}
		})
	}
}

func TestReviewLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	alice := env.token(t, "alice", auth.RoleReviewer)
	bob := env.token(t, "bob", auth.RoleReviewer)
	path := "/api/v1/venues/v1/reviews"

	steps := []struct {
		name      string
		method    string
		path      string
		token     string
		rating    int
		status    int
		wantAvg   float64
		wantCount int
	}{
		{"alice rates 4", http.MethodPost, path, alice, 4, http.StatusCreated, 4, 1},
		{"bob rates 2", http.MethodPost, path, bob, 2, http.StatusCreated, 3, 2},
		{"alice edits to 5", http.MethodPost, path, alice, 5, http.StatusOK, 3.5, 2},
		{"bob deletes", http.MethodDelete, path + "/me", bob, 0, http.StatusOK, 5, 1},
	}
	for _, st := range steps {
		var body interface{}
		if st.method == http.MethodPost {
			body = SubmitReviewRequest{Rating: st.rating, Title: "Visit"}
		}
		rec := env.do(t, st.method, st.path, st.token, body)
		if rec.Code != st.status {
			t.Fatalf("%s: status = %d, want %d: %s", st.name, rec.Code, st.status, rec.Body.String())
		}

		var agg models.RatingAggregate
		if st.method == http.MethodPost {
			agg = decodeData[ratings.Result](t, rec).Aggregate
		} else {
			agg = decodeData[models.RatingAggregate](t, rec)
		}
		if agg.ReviewCount != st.wantCount || math.Abs(agg.AverageRating-st.wantAvg) > 1e-9 {
			t.Errorf("%s: aggregate = %+v, want (%v, %d)", st.name, agg, st.wantAvg, st.wantCount)
		}

		// Every write invalidates, so reads reflect it immediately.
		list := decodeData[[]models.Review](t, env.do(t, http.MethodGet, path, "", nil))
		if len(list) != st.wantCount {
			t.Errorf("%s: %d reviews listed, want %d", st.name, len(list), st.wantCount)
		}
	}

	expectError(t, env.do(t, http.MethodDelete, path+"/me", bob, nil), http.StatusNotFound, ErrCodeNotFound)

	recent := decodeData[[]models.Review](t, env.do(t, http.MethodGet, "/api/v1/reviews/recent?limit=5", "", nil))
	if len(recent) != 1 || recent[0].ReviewerID != "alice" || recent[0].Rating != 5 {
		t.Errorf("recent = %+v", recent)
	}
}

func TestSubmitReviewErrors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	reviewer := env.token(t, "carol", auth.RoleReviewer)

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"rating too high", "/api/v1/venues/v1/reviews", SubmitReviewRequest{Rating: 7}, http.StatusBadRequest, ErrCodeValidationFailed},
		{"rating missing", "/api/v1/venues/v1/reviews", SubmitReviewRequest{}, http.StatusBadRequest, ErrCodeValidationFailed},
		{"unknown field", "/api/v1/venues/v1/reviews", `{"rating":4,"reviewer_id":"mallory"}`, http.StatusBadRequest, ErrCodeBadRequest},
		{"malformed", "/api/v1/venues/v1/reviews", `{"rating":`, http.StatusBadRequest, ErrCodeBadRequest},
		{"empty body", "/api/v1/venues/v1/reviews", "", http.StatusBadRequest, ErrCodeBadRequest},
		{"missing venue", "/api/v1/venues/nope/reviews", SubmitReviewRequest{Rating: 4}, http.StatusNotFound, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, env.do(t, http.MethodPost, tt.path, reviewer, tt.body), tt.status, tt.code)
		})
	}

	expectError(t, env.do(t, http.MethodGet, "/api/v1/venues/nope/reviews", "", nil), http.StatusNotFound, ErrCodeNotFound)
}

func TestSubmitReviewRateLimited(t *testing.T) {
	t.Parallel()

	var limiter *ReviewLimiter
	env := newTestEnv(t, func(d *Dependencies) {
		limiter = NewReviewLimiter(2, d.Clock)
		d.ReviewLimiter = limiter
	})
	dave := env.token(t, "dave", auth.RoleReviewer)
	path := "/api/v1/venues/v2/reviews"

	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodPost, path, dave, SubmitReviewRequest{Rating: 3}); rec.Code >= 300 {
			t.Fatalf("submission %d status = %d", i, rec.Code)
		}
	}
	rec := env.do(t, http.MethodPost, path, dave, SubmitReviewRequest{Rating: 4})
	expectError(t, rec, http.StatusTooManyRequests, ErrCodeTooManyRequests)
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After = %q, want 30", got)
	}

	// Limits are per reviewer.
	erin := env.token(t, "erin", auth.RoleReviewer)
	if rec := env.do(t, http.MethodPost, path, erin, SubmitReviewRequest{Rating: 4}); rec.Code != http.StatusCreated {
		t.Errorf("other reviewer status = %d", rec.Code)
	}

	env.clock.Advance(30 * time.Second)
	if rec := env.do(t, http.MethodPost, path, dave, SubmitReviewRequest{Rating: 4}); rec.Code != http.StatusOK {
		t.Errorf("after refill status = %d: %s", rec.Code, rec.Body.String())
	}
	if n := limiter.size(); n != 2 {
		t.Errorf("tracked reviewers = %d, want 2", n)
	}
}

func TestFacetEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	states := decodeData[[]string](t, env.do(t, http.MethodGet, "/api/v1/facets/states", "", nil))
	if strings.Join(states, ",") != "OR,TX" {
		t.Errorf("states = %v", states)
	}
	states = decodeData[[]string](t, env.do(t, http.MethodGet, "/api/v1/facets/states?category=arcade", "", nil))
	if strings.Join(states, ",") != "TX" {
		t.Errorf("arcade states = %v", states)
	}

	cities := decodeData[[]facets.StateCity](t, env.do(t, http.MethodGet, "/api/v1/facets/cities?state=TX", "", nil))
	if len(cities) != 2 || cities[0].City != "Austin" || cities[1].City != "Dallas" {
		t.Errorf("TX cities = %v", cities)
	}
	cities = decodeData[[]facets.StateCity](t, env.do(t, http.MethodGet, "/api/v1/facets/cities?category=leagues", "", nil))
	if len(cities) != 2 || cities[0].City != "Portland" {
		t.Errorf("league cities = %v", cities)
	}

	counts := decodeData[[]facets.StateCount](t, env.do(t, http.MethodGet, "/api/v1/facets/state-counts", "", nil))
	if len(counts) != 2 || counts[1] != (facets.StateCount{State: "TX", Count: 2}) {
		t.Errorf("counts = %v", counts)
	}

	categories := decodeData[[]string](t, env.do(t, http.MethodGet, "/api/v1/categories", "", nil))
	if len(categories) != len(facets.DefaultAmenities)+1 {
		t.Errorf("categories = %v", categories)
	}

	expectError(t, env.do(t, http.MethodGet, "/api/v1/facets/cities?category=nope", "", nil), http.StatusBadRequest, ErrCodeBadRequest)
}

func TestPricing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	expectError(t, env.do(t, http.MethodGet, "/api/v1/pricing", "", nil), http.StatusServiceUnavailable, ErrCodeServiceUnavailable)

	states := []models.StatePrice{
		{State: "TX", PriceAggregate: models.PriceAggregate{PerGame: 4.5, PerHour: 30, Samples: 10}},
		{State: "OR", PriceAggregate: models.PriceAggregate{PerGame: 6, PerHour: 25, Samples: 4}},
		{State: "HI", PriceAggregate: models.PriceAggregate{PerGame: 1, PerHour: 90, Samples: 1}},
	}
	cities := []models.CityPrice{
		{State: "TX", City: "Austin", PriceAggregate: models.PriceAggregate{PerGame: 5, Samples: 5}},
		{State: "OR", City: "Portland", PriceAggregate: models.PriceAggregate{PerGame: 6, Samples: 4}},
	}
	if err := env.store.PutReport(context.Background(), "2026-03-13", models.PriceAggregate{PerGame: 5, PerHour: 28, Samples: 15}, states, cities); err != nil {
		t.Fatalf("PutReport: %v", err)
	}
	// The failed fetch above left no snapshot, so the next read refetches.
	snap := decodeData[models.PricingSnapshot](t, env.do(t, http.MethodGet, "/api/v1/pricing", "", nil))
	if snap.ReportDate != "2026-03-13" {
		t.Errorf("report date = %q", snap.ReportDate)
	}
	if snap.Extremes.CheapestPerGame == nil || snap.Extremes.CheapestPerGame.State != "TX" {
		t.Errorf("cheapest per game = %+v, want TX with HI excluded", snap.Extremes.CheapestPerGame)
	}
	if snap.Extremes.MostExpensivePerHour == nil || snap.Extremes.MostExpensivePerHour.State != "TX" {
		t.Errorf("most expensive per hour = %+v", snap.Extremes.MostExpensivePerHour)
	}

	narrowed := decodeData[models.PricingSnapshot](t, env.do(t, http.MethodGet, "/api/v1/pricing?state=or", "", nil))
	if len(narrowed.Cities) != 1 || narrowed.Cities[0].City != "Portland" || len(narrowed.States) != 3 {
		t.Errorf("narrowed = %+v", narrowed)
	}
	full := decodeData[models.PricingSnapshot](t, env.do(t, http.MethodGet, "/api/v1/pricing", "", nil))
	if len(full.Cities) != 2 {
		t.Errorf("narrowing leaked into the snapshot: %+v", full.Cities)
	}
}

func TestAdminEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.token(t, "admin-1", auth.RoleAdmin)
	owner := env.token(t, "owner-1", auth.RoleOwner)

	expectError(t, env.do(t, http.MethodPost, "/api/v1/admin/cache/venues/invalidate", owner, nil), http.StatusForbidden, ErrCodeForbidden)
	expectError(t, env.do(t, http.MethodPost, "/api/v1/admin/cache/nope/invalidate", admin, nil), http.StatusNotFound, ErrCodeNotFound)

	if rec := env.do(t, http.MethodPost, "/api/v1/admin/cache/venues/invalidate", admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("invalidate status = %d: %s", rec.Code, rec.Body.String())
	}
	statuses := decodeData[[]snapshot.Status](t, env.do(t, http.MethodGet, "/api/v1/admin/caches", admin, nil))
	for _, st := range statuses {
		wantGen := uint64(0)
		if st.Name == snapshot.Venues {
			wantGen = 1
		}
		if st.Generation != wantGen {
			t.Errorf("%s generation = %d, want %d", st.Name, st.Generation, wantGen)
		}
	}

	// Drift the stored aggregate away from the reviews behind it.
	storetest.PutReviews(t, env.store, models.Review{VenueID: "v2", ReviewerID: "r1", Rating: 2, CreatedAt: testNow, UpdatedAt: testNow})
	rec := env.do(t, http.MethodPost, "/api/v1/admin/venues/v2/reconcile", admin, nil)
	result := decodeData[ratings.Reconciliation](t, rec)
	if !result.Changed || result.After != (models.RatingAggregate{AverageRating: 2, ReviewCount: 1}) {
		t.Errorf("reconcile = %+v", result)
	}
	expectError(t, env.do(t, http.MethodPost, "/api/v1/admin/venues/nope/reconcile", admin, nil), http.StatusNotFound, ErrCodeNotFound)
}
