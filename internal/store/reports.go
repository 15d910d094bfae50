// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lanefinder/internal/models"
)

// ReportExists reports whether a pricing report was published for date.
func (s *Store) ReportExists(ctx context.Context, date string) (bool, error) {
	_, err := s.kv.Get(ctx, ReportKey(date, ReportNational))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe report %s: %w", date, err)
	}
	return true, nil
}

// FetchNationalPrices reads the national aggregate of a report.
func (s *Store) FetchNationalPrices(ctx context.Context, date string) (models.PriceAggregate, error) {
	return fetchReportPart[models.PriceAggregate](ctx, s.kv, date, ReportNational)
}

// FetchStatePrices reads the per-state aggregates of a report.
func (s *Store) FetchStatePrices(ctx context.Context, date string) ([]models.StatePrice, error) {
	return fetchReportPart[[]models.StatePrice](ctx, s.kv, date, ReportStates)
}

// FetchCityPrices reads the per-city aggregates of a report.
func (s *Store) FetchCityPrices(ctx context.Context, date string) ([]models.CityPrice, error) {
	return fetchReportPart[[]models.CityPrice](ctx, s.kv, date, ReportCities)
}

func fetchReportPart[T any](ctx context.Context, kv KV, date, part string) (T, error) {
	var zero T
	data, err := kv.Get(ctx, ReportKey(date, part))
	if err != nil {
		return zero, fmt.Errorf("fetch report %s %s: %w", date, part, err)
	}
	return decode[T](data)
}

// PutReport publishes all three parts of a report atomically.
func (s *Store) PutReport(ctx context.Context, date string, national models.PriceAggregate, states []models.StatePrice, cities []models.CityPrice) error {
	parts := map[string]interface{}{
		ReportNational: national,
		ReportStates:   states,
		ReportCities:   cities,
	}
	encoded := make(map[string][]byte, len(parts))
	for part, v := range parts {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode report %s: %w", part, err)
		}
		encoded[ReportKey(date, part)] = data
	}
	return s.RunTransaction(ctx, func(txn Txn) error {
		for key, data := range encoded {
			if err := txn.Set(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}
