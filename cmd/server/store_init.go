// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/lanefinder/internal/config"
	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/store"
	"github.com/tomtom215/lanefinder/internal/store/badgerstore"
	"github.com/tomtom215/lanefinder/internal/store/redisstore"
)

const badgerGCInterval = 10 * time.Minute

// openStore opens the configured backend. The returned service, when non-nil,
// belongs in the data layer of the supervisor tree.
func openStore(ctx context.Context, cfg *config.StoreConfig, clock clockwork.Clock) (*store.Store, suture.Service, error) {
	opts := store.Options{MaxAttempts: cfg.MaxTxnAttempts, Clock: clock}

	switch cfg.Driver {
	case "badger", "":
		kv, err := badgerstore.Open(badgerstore.Config{Path: cfg.Path, InMemory: cfg.InMemory})
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("BadgerDB store opened")
		var gc suture.Service
		if !cfg.InMemory {
			gc = badgerstore.NewGCService(kv, badgerGCInterval)
		}
		return store.New(kv, opts), gc, nil

	case "redis":
		kv, err := redisstore.Open(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("Redis store connected")
		return store.New(kv, opts), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// loadSeed upserts the fixture at path.
func loadSeed(ctx context.Context, st *store.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	res, err := st.LoadSeed(ctx, f)
	if err != nil {
		return err
	}
	logging.Info().Int("venues", res.Venues).Int("reports", res.Reports).Str("path", path).Msg("Seed data loaded")
	return nil
}
