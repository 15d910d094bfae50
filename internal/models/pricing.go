// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package models

import "time"

// ReportDateLayout is the key format of a daily pricing report.
const ReportDateLayout = "2006-01-02"

// PriceAggregate is the mean advertised price over Samples venues.
type PriceAggregate struct {
	PerGame float64 `json:"per_game"`
	PerHour float64 `json:"per_hour"`
	Samples int     `json:"samples"`
}

// StatePrice is a per-state aggregate.
type StatePrice struct {
	State string `json:"state"`
	PriceAggregate
}

// CityPrice is a per-city aggregate.
type CityPrice struct {
	State string `json:"state"`
	City  string `json:"city"`
	PriceAggregate
}

// PriceExtremes names the cheapest and most expensive states by each measure.
// A field is nil when no eligible state reports that measure.
type PriceExtremes struct {
	CheapestPerGame      *StatePrice `json:"cheapest_per_game,omitempty"`
	MostExpensivePerGame *StatePrice `json:"most_expensive_per_game,omitempty"`
	CheapestPerHour      *StatePrice `json:"cheapest_per_hour,omitempty"`
	MostExpensivePerHour *StatePrice `json:"most_expensive_per_hour,omitempty"`
}

// PricingSnapshot is one day's complete pricing report plus derived extremes.
type PricingSnapshot struct {
	ReportDate string         `json:"report_date"`
	National   PriceAggregate `json:"national"`
	States     []StatePrice   `json:"states"`
	Cities     []CityPrice    `json:"cities"`
	Extremes   PriceExtremes  `json:"extremes"`
	BuiltAt    time.Time      `json:"built_at"`
}
