// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

// Package pricing builds the daily pricing snapshot: the newest report within
// the lookback window, its national, state and city aggregates, and the
// cheapest and most expensive states outside the excluded regions.
package pricing

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/models"
	"github.com/tomtom215/lanefinder/internal/snapshot"
)

// ErrNoReport is returned when no report exists in the lookback window.
var ErrNoReport = errors.New("no pricing report in lookback window")

// DefaultExcludedRegions are left out of the extremes because their prices
// are outliers.
var DefaultExcludedRegions = []string{"AK", "HI", "PR", "DC", "GU", "VI"}

// Source reads daily reports from the backing store.
type Source interface {
	ReportExists(ctx context.Context, date string) (bool, error)
	FetchNationalPrices(ctx context.Context, date string) (models.PriceAggregate, error)
	FetchStatePrices(ctx context.Context, date string) ([]models.StatePrice, error)
	FetchCityPrices(ctx context.Context, date string) ([]models.CityPrice, error)
}

// Options configure a Builder.
type Options struct {
	Clock    clockwork.Clock
	Location *time.Location
	// LookbackDays is how many days, today included, are probed. Default 3.
	LookbackDays int
	// ExcludedRegions defaults to DefaultExcludedRegions. An empty non-nil
	// slice excludes nothing.
	ExcludedRegions []string
}

// Builder fetches pricing snapshots.
type Builder struct {
	src      Source
	clock    clockwork.Clock
	loc      *time.Location
	lookback int
	excluded map[string]struct{}
}

func NewBuilder(src Source, opts Options) *Builder {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 3
	}
	if opts.ExcludedRegions == nil {
		opts.ExcludedRegions = DefaultExcludedRegions
	}
	excluded := make(map[string]struct{}, len(opts.ExcludedRegions))
	for _, r := range opts.ExcludedRegions {
		excluded[strings.ToUpper(strings.TrimSpace(r))] = struct{}{}
	}
	return &Builder{
		src:      src,
		clock:    opts.Clock,
		loc:      opts.Location,
		lookback: opts.LookbackDays,
		excluded: excluded,
	}
}

// NewCache returns the pricing snapshot cache. Its refresh follows the same
// midnight and single-flight rules as every other snapshot, and every fetch
// goes through a circuit breaker configured by breaker.
func NewCache(b *Builder, breaker snapshot.BreakerSettings, opts snapshot.Options) *snapshot.Cache[models.PricingSnapshot] {
	if opts.Clock == nil {
		opts.Clock = b.clock
	}
	if opts.Location == nil {
		opts.Location = b.loc
	}
	return snapshot.New[models.PricingSnapshot](snapshot.Pricing,
		snapshot.WithBreaker(snapshot.Pricing, breaker, b.Fetch), opts)
}

// CandidateDates returns the report dates probed, newest first.
func (b *Builder) CandidateDates() []string {
	today := b.clock.Now().In(b.loc)
	dates := make([]string, b.lookback)
	for i := range dates {
		dates[i] = today.AddDate(0, 0, -i).Format(models.ReportDateLayout)
	}
	return dates
}

// LocateReportDate returns the newest date in the window that has a report.
func (b *Builder) LocateReportDate(ctx context.Context) (string, error) {
	dates := b.CandidateDates()
	for _, date := range dates {
		ok, err := b.src.ReportExists(ctx, date)
		if err != nil {
			return "", err
		}
		if ok {
			return date, nil
		}
	}
	return "", fmt.Errorf("%w: %s to %s", ErrNoReport, dates[len(dates)-1], dates[0])
}

// Fetch builds a complete snapshot. It is the pricing cache's Fetcher.
func (b *Builder) Fetch(ctx context.Context) (models.PricingSnapshot, error) {
	date, err := b.LocateReportDate(ctx)
	if err != nil {
		return models.PricingSnapshot{}, err
	}

	snap := models.PricingSnapshot{ReportDate: date}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		national, err := b.src.FetchNationalPrices(gctx, date)
		snap.National = national
		return err
	})
	g.Go(func() error {
		states, err := b.src.FetchStatePrices(gctx, date)
		snap.States = states
		return err
	})
	g.Go(func() error {
		cities, err := b.src.FetchCityPrices(gctx, date)
		snap.Cities = cities
		return err
	})
	if err := g.Wait(); err != nil {
		return models.PricingSnapshot{}, fmt.Errorf("fetch pricing report %s: %w", date, err)
	}

	slices.SortFunc(snap.States, func(a, b models.StatePrice) int { return cmp.Compare(a.State, b.State) })
	slices.SortFunc(snap.Cities, func(a, b models.CityPrice) int {
		return cmp.Or(cmp.Compare(a.State, b.State), cmp.Compare(a.City, b.City))
	})
	snap.Extremes = b.Extremes(snap.States)
	snap.BuiltAt = b.clock.Now().UTC()

	logging.Ctx(ctx).Debug().
		Str("report_date", date).
		Int("states", len(snap.States)).
		Int("cities", len(snap.Cities)).
		Msg("Pricing snapshot built")
	return snap, nil
}

// Excluded reports whether state is left out of the extremes.
func (b *Builder) Excluded(state string) bool {
	_, ok := b.excluded[strings.ToUpper(state)]
	return ok
}

// Extremes finds the cheapest and most expensive eligible states by per-game
// and per-hour price. States without samples or without a positive price for
// a measure are ignored for that measure. Ties go to the lower state code.
func (b *Builder) Extremes(states []models.StatePrice) models.PriceExtremes {
	var ex models.PriceExtremes
	perGame := func(s *models.StatePrice) float64 { return s.PerGame }
	perHour := func(s *models.StatePrice) float64 { return s.PerHour }

	for i := range states {
		s := &states[i]
		if s.Samples <= 0 || b.Excluded(s.State) {
			continue
		}
		ex.CheapestPerGame = pick(ex.CheapestPerGame, s, perGame, -1)
		ex.MostExpensivePerGame = pick(ex.MostExpensivePerGame, s, perGame, 1)
		ex.CheapestPerHour = pick(ex.CheapestPerHour, s, perHour, -1)
		ex.MostExpensivePerHour = pick(ex.MostExpensivePerHour, s, perHour, 1)
	}
	return ex
}

// pick returns a copy of candidate when it beats current in direction dir
// (-1 lower wins, 1 higher wins), otherwise current.
func pick(current, candidate *models.StatePrice, price func(*models.StatePrice) float64, dir int) *models.StatePrice {
	p := price(candidate)
	if p <= 0 {
		return current
	}
	if current != nil {
		c := cmp.Compare(p, price(current)) * dir
		if c < 0 || (c == 0 && candidate.State >= current.State) {
			return current
		}
	}
	out := *candidate
	return &out
}
