// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

/*
Package models defines the records Lanefinder reads from and writes to the
document store: venues with their rating aggregate, reviews, and the daily
pricing reports.

Snapshots built from these records are shared between goroutines and must be
treated as read-only once published by a cache.
*/
package models

import (
	"strings"
	"time"
)

// Venue is a bowling center listing. AverageRating and ReviewCount form the
// rating aggregate and are only written by the ratings package.
type Venue struct {
	ID      string `json:"id"`
	Name    string `json:"name" validate:"required,max=200"`
	Slug    string `json:"slug"`
	Address string `json:"address,omitempty" validate:"max=300"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,usstate"`
	Zip     string `json:"zip,omitempty" validate:"omitempty,max=10"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Website string `json:"website,omitempty" validate:"omitempty,url,max=500"`
	OwnerID string `json:"owner_id,omitempty"`

	// Amenities is an open set of category tags such as "leagues" or "bar".
	Amenities []string `json:"amenities,omitempty" validate:"max=50,dive,max=50"`
	Lanes     int      `json:"lanes,omitempty" validate:"gte=0,lte=200"`

	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAmenity reports whether the venue carries tag (case-insensitive).
func (v *Venue) HasAmenity(tag string) bool {
	for _, a := range v.Amenities {
		if strings.EqualFold(a, tag) {
			return true
		}
	}
	return false
}

// Aggregate returns the venue's rating aggregate.
func (v *Venue) Aggregate() RatingAggregate {
	return RatingAggregate{AverageRating: v.AverageRating, ReviewCount: v.ReviewCount}
}

// SetAggregate overwrites the rating aggregate fields.
func (v *Venue) SetAggregate(agg RatingAggregate) {
	v.AverageRating = agg.AverageRating
	v.ReviewCount = agg.ReviewCount
}

// RatingAggregate is the running mean of a venue's review ratings.
// ReviewCount is never negative and AverageRating is 0 when ReviewCount is 0.
type RatingAggregate struct {
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// VenuePatch carries the descriptive fields an owner may edit. Nil fields are
// left unchanged.
type VenuePatch struct {
	Name      *string   `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Address   *string   `json:"address,omitempty" validate:"omitempty,max=300"`
	Phone     *string   `json:"phone,omitempty" validate:"omitempty,max=32"`
	Website   *string   `json:"website,omitempty" validate:"omitempty,url,max=500"`
	Amenities *[]string `json:"amenities,omitempty" validate:"omitempty,max=50,dive,max=50"`
	Lanes     *int      `json:"lanes,omitempty" validate:"omitempty,gte=0,lte=200"`
}

// Apply copies the non-nil fields of p onto v.
func (p *VenuePatch) Apply(v *Venue) {
	if p.Name != nil {
		v.Name = *p.Name
	}
	if p.Address != nil {
		v.Address = *p.Address
	}
	if p.Phone != nil {
		v.Phone = *p.Phone
	}
	if p.Website != nil {
		v.Website = *p.Website
	}
	if p.Amenities != nil {
		v.Amenities = append([]string(nil), (*p.Amenities)...)
	}
	if p.Lanes != nil {
		v.Lanes = *p.Lanes
	}
}
