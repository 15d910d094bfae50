// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package models

import (
	"reflect"
	"testing"
)

func TestVenueHasAmenity(t *testing.T) {
	t.Parallel()

	v := &Venue{Amenities: []string{"Leagues", "bar"}}
	tests := []struct {
		tag  string
		want bool
	}{
		{"leagues", true},
		{"BAR", true},
		{"arcade", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			t.Parallel()
			if got := v.HasAmenity(tt.tag); got != tt.want {
				t.Errorf("HasAmenity(%q) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestVenueAggregateRoundTrip(t *testing.T) {
	t.Parallel()

	v := &Venue{}
	v.SetAggregate(RatingAggregate{AverageRating: 3.5, ReviewCount: 2})
	if got := v.Aggregate(); got != (RatingAggregate{AverageRating: 3.5, ReviewCount: 2}) {
		t.Errorf("Aggregate() = %+v", got)
	}
}

func TestVenuePatchApply(t *testing.T) {
	t.Parallel()

	name := "Strike Zone"
	lanes := 24
	amenities := []string{"arcade"}
	v := &Venue{Name: "Old", Phone: "555", Lanes: 12, Amenities: []string{"bar"}}

	patch := VenuePatch{Name: &name, Lanes: &lanes, Amenities: &amenities}
	patch.Apply(v)

	if v.Name != name || v.Lanes != lanes {
		t.Errorf("patched fields not applied: %+v", v)
	}
	if v.Phone != "555" {
		t.Errorf("Phone changed to %q, want untouched", v.Phone)
	}
	if !reflect.DeepEqual(v.Amenities, amenities) {
		t.Errorf("Amenities = %v, want %v", v.Amenities, amenities)
	}

	amenities[0] = "mutated"
	if v.Amenities[0] != "arcade" {
		t.Error("Apply must copy the amenities slice")
	}
}
