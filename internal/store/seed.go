// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lanefinder/internal/models"
)

// Seed is the fixture format accepted by LoadSeed.
type Seed struct {
	Venues  []models.Venue `json:"venues"`
	Reports []SeedReport   `json:"reports"`
}

// SeedReport is one daily pricing report.
type SeedReport struct {
	Date     string                `json:"date"`
	National models.PriceAggregate `json:"national"`
	States   []models.StatePrice   `json:"states"`
	Cities   []models.CityPrice    `json:"cities"`
}

// SeedResult counts what LoadSeed wrote.
type SeedResult struct {
	Venues  int
	Reports int
}

// LoadSeed upserts the venues and reports in r. Descriptive venue fields are
// overwritten; an existing rating aggregate is preserved and a new venue
// starts at zero reviews. A venue seeded under a new slug releases its old
// one; a seed entry without a slug keeps the current slug.
func (s *Store) LoadSeed(ctx context.Context, r io.Reader) (SeedResult, error) {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return SeedResult{}, fmt.Errorf("decode seed: %w", err)
	}

	var res SeedResult
	now := s.opts.Clock.Now().UTC()
	for i := range seed.Venues {
		v := seed.Venues[i]
		if !ValidID(v.ID) {
			return res, fmt.Errorf("seed venue %d: invalid id %q", i, v.ID)
		}
		err := s.RunTransaction(ctx, func(txn Txn) error {
			existing, err := GetVenueTx(txn, v.ID)
			switch {
			case errors.Is(err, ErrNotFound):
				v.SetAggregate(models.RatingAggregate{})
				if v.CreatedAt.IsZero() {
					v.CreatedAt = now
				}
			case err != nil:
				return err
			default:
				v.SetAggregate(existing.Aggregate())
				v.CreatedAt = existing.CreatedAt
				if v.Slug == "" {
					v.Slug = existing.Slug
				}
				if existing.Slug != "" && existing.Slug != v.Slug {
					if err := ReleaseSlugTx(txn, existing.Slug, v.ID); err != nil {
						return err
					}
				}
			}
			v.UpdatedAt = now
			if v.Slug != "" {
				owner, err := SlugOwnerTx(txn, v.Slug)
				if err != nil {
					return err
				}
				if owner != "" && owner != v.ID {
					return fmt.Errorf("slug %q already held by %s", v.Slug, owner)
				}
				if err := ClaimSlugTx(txn, v.Slug, v.ID); err != nil {
					return err
				}
			}
			return PutVenueTx(txn, &v)
		})
		if err != nil {
			return res, fmt.Errorf("seed venue %s: %w", v.ID, err)
		}
		res.Venues++
	}

	for _, rep := range seed.Reports {
		if _, err := time.Parse(models.ReportDateLayout, rep.Date); err != nil {
			return res, fmt.Errorf("seed report date %q: %w", rep.Date, err)
		}
		if err := s.PutReport(ctx, rep.Date, rep.National, rep.States, rep.Cities); err != nil {
			return res, fmt.Errorf("seed report %s: %w", rep.Date, err)
		}
		res.Reports++
	}
	return res, nil
}
