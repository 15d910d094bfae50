// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package venues

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/lanefinder/internal/models"
	"github.com/tomtom215/lanefinder/internal/snapshot"
	"github.com/tomtom215/lanefinder/internal/store"
	"github.com/tomtom215/lanefinder/internal/store/storetest"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, cacheID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, cacheID)
	return nil
}

func (r *recordingInvalidator) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

var created = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *store.Store, *recordingInvalidator, *clockwork.FakeClock) {
	t.Helper()
	s := storetest.New(t)
	inv := &recordingInvalidator{}
	clock := clockwork.NewFakeClockAt(created)
	return NewService(s, inv, clock), s, inv, clock
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"Sunset Lanes", "Austin", "TX"}, "sunset-lanes-austin-tx"},
		{[]string{"  Mañana   Bowl!! "}, "manana-bowl"},
		{[]string{"Rock & Bowl", "New Orleans"}, "rock-bowl-new-orleans"},
		{[]string{"300 Club"}, "300-club"},
		{[]string{"---"}, ""},
		{[]string{strings.Repeat("ab ", 40)}, strings.TrimRight(strings.Repeat("ab-", 27), "-")},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			if got := Slugify(tt.in...); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()

	svc, s, inv, _ := setup(t)
	ctx := context.Background()

	in := models.Venue{
		Name:          "  Sunset Lanes ",
		City:          "Austin",
		State:         "tx",
		Amenities:     []string{"Bar", "leagues", "bar", " "},
		Lanes:         24,
		AverageRating: 5,
		ReviewCount:   100,
	}
	v, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if v.ID == "" || v.Slug != "sunset-lanes-austin-tx" || v.State != "TX" || v.Name != "Sunset Lanes" {
		t.Errorf("Create() = %+v", v)
	}
	if v.ReviewCount != 0 || v.AverageRating != 0 {
		t.Errorf("aggregate = %+v, want zero on create", v.Aggregate())
	}
	if got := strings.Join(v.Amenities, ","); got != "bar,leagues" {
		t.Errorf("Amenities = %s, want bar,leagues", got)
	}
	if !v.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", v.CreatedAt, created)
	}

	stored, err := s.GetVenue(ctx, v.ID)
	if err != nil || stored.Slug != v.Slug {
		t.Fatalf("stored venue = %+v, %v", stored, err)
	}

	second, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create duplicate name: %v", err)
	}
	if second.Slug != "sunset-lanes-austin-tx-2" {
		t.Errorf("second slug = %q, want suffix -2", second.Slug)
	}

	if _, err := svc.Create(ctx, models.Venue{Name: "Other", City: "Austin", State: "TX", Slug: "sunset-lanes-austin-tx"}); !errors.Is(err, ErrSlugTaken) {
		t.Errorf("Create with taken slug error = %v, want ErrSlugTaken", err)
	}

	if got := inv.list(); len(got) != 2 || got[0] != snapshot.Venues {
		t.Errorf("invalidations = %v, want venues twice", got)
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	svc, _, inv, _ := setup(t)
	tests := []struct {
		name string
		in   models.Venue
	}{
		{"missing name", models.Venue{City: "Austin", State: "TX"}},
		{"bad state", models.Venue{Name: "X", City: "Austin", State: "ZZ"}},
		{"bad website", models.Venue{Name: "X", City: "Austin", State: "TX", Website: "not a url"}},
		{"bad slug", models.Venue{Name: "X", City: "Austin", State: "TX", Slug: "Not A Slug"}},
		{"bad owner", models.Venue{Name: "X", City: "Austin", State: "TX", OwnerID: "a:b"}},
		{"too many lanes", models.Venue{Name: "X", City: "Austin", State: "TX", Lanes: 500}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := svc.Create(context.Background(), tt.in); !errors.Is(err, ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
	if got := inv.list(); len(got) != 0 {
		t.Errorf("invalidations = %v, want none", got)
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	svc, s, inv, clock := setup(t)
	ctx := context.Background()
	storetest.PutVenues(t, s, models.Venue{
		ID: "v1", Name: "Sunset Lanes", Slug: "sunset-lanes", City: "Austin", State: "TX",
		OwnerID: "owner-1", AverageRating: 4.5, ReviewCount: 2, CreatedAt: created,
	})

	name := "Sunset Lanes & Lounge"
	lanes := 32
	patch := models.VenuePatch{Name: &name, Lanes: &lanes}

	tests := []struct {
		name    string
		actor   Actor
		id      string
		wantErr error
	}{
		{"stranger", Actor{ID: "someone"}, "v1", ErrForbidden},
		{"anonymous", Actor{}, "v1", ErrForbidden},
		{"missing venue", Actor{Admin: true}, "nope", ErrNotFound},
		{"invalid id", Actor{Admin: true}, "a:b", ErrNotFound},
	}
	for _, tt := range tests {
		if _, err := svc.Update(ctx, tt.actor, tt.id, patch); !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: Update() error = %v, want %v", tt.name, err, tt.wantErr)
		}
	}

	clock.Advance(time.Hour)
	v, err := svc.Update(ctx, Actor{ID: "owner-1"}, "v1", patch)
	if err != nil {
		t.Fatalf("owner Update: %v", err)
	}
	if v.Name != name || v.Lanes != 32 || v.Slug != "sunset-lanes" {
		t.Errorf("Update() = %+v", v)
	}
	if v.ReviewCount != 2 || v.AverageRating != 4.5 {
		t.Errorf("aggregate changed: %+v", v.Aggregate())
	}
	if !v.UpdatedAt.Equal(created.Add(time.Hour)) || !v.CreatedAt.Equal(created) {
		t.Errorf("timestamps = %v / %v", v.CreatedAt, v.UpdatedAt)
	}

	blank := "  "
	if _, err := svc.Update(ctx, Actor{Admin: true}, "v1", models.VenuePatch{Name: &blank}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank name error = %v, want ErrValidation", err)
	}
	if _, err := svc.Update(ctx, Actor{Admin: true}, "v1", models.VenuePatch{Lanes: new(int)}); err != nil {
		t.Errorf("admin Update: %v", err)
	}

	if got := inv.list(); len(got) != 2 {
		t.Errorf("invalidations = %v, want one per successful update", got)
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	svc, s, _, _ := setup(t)
	storetest.PutVenues(t, s, models.Venue{ID: "v1", Name: "Sunset Lanes", City: "Austin", State: "TX"})

	if v, err := svc.Get(context.Background(), "v1"); err != nil || v.Name != "Sunset Lanes" {
		t.Errorf("Get(v1) = %+v, %v", v, err)
	}
	for _, id := range []string{"missing", "", "a:b"} {
		if _, err := svc.Get(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrNotFound", id, err)
		}
	}
}
