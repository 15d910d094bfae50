// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package badgerstore

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/lanefinder/internal/logging"
)

// GCService periodically reclaims value-log space. Rating edits rewrite the
// same venue documents all day, so stale versions accumulate quickly.
type GCService struct {
	kv           *KV
	interval     time.Duration
	discardRatio float64
}

// NewGCService returns a service that runs value-log GC every interval.
func NewGCService(kv *KV, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{kv: kv, interval: interval, discardRatio: 0.5}
}

// Serve implements suture.Service.
func (s *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce rewrites value-log files until nothing more can be reclaimed.
// It returns the number of files rewritten.
func (s *GCService) RunOnce() int {
	rewritten := 0
	for {
		err := s.kv.db.RunValueLogGC(s.discardRatio)
		switch {
		case err == nil:
			rewritten++
			continue
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
		case errors.Is(err, badger.ErrRejected):
			logging.Debug().Msg("Badger GC skipped, database closing or GC already running")
		default:
			logging.Warn().Err(err).Msg("Badger value log GC failed")
		}
		if rewritten > 0 {
			logging.Info().Int("files", rewritten).Msg("Badger value log GC reclaimed space")
		}
		return rewritten
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *GCService) String() string {
	return "badger-gc"
}
