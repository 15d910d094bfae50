// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

// Package store is the document store seen by the rest of Lanefinder.
//
// A backend (badgerstore, redisstore) only supplies a KV: point reads, prefix
// scans and optimistic read-modify-write transactions. Store layers the
// venue, review and report documents on top of it, encodes them as JSON and
// retries transactions that lose an optimistic-concurrency race.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/metrics"
)

var (
	// ErrNotFound is returned when a key or document does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned by a KV when a transaction lost a race, and by
	// Store.RunTransaction once every attempt has lost.
	ErrConflict = errors.New("store: transaction conflict")
)

// Txn is the view of the store inside one transaction. Every key read through
// Get or Keys is checked for concurrent modification at commit.
type Txn interface {
	// Get returns ErrNotFound for a missing key.
	Get(key string) ([]byte, error)
	// Keys lists keys with the given prefix in ascending order.
	Keys(prefix string) ([]string, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// KV is implemented by storage backends.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Scan calls fn for every key with prefix, in ascending key order.
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error
	// Attempt runs fn once inside a transaction and commits its writes. A
	// lost race is reported as ErrConflict and no writes are applied.
	Attempt(ctx context.Context, fn func(Txn) error) error
	Close() error
}

// Transactor runs read-modify-write transactions with bounded conflict retry.
type Transactor interface {
	RunTransaction(ctx context.Context, fn func(Txn) error) error
}

// Options tunes a Store.
type Options struct {
	// MaxAttempts bounds transaction attempts. Default 10.
	MaxAttempts int
	// BaseBackoff is the first retry delay; it doubles per attempt with jitter.
	// Default 2ms.
	BaseBackoff time.Duration
	// MaxBackoff caps a single retry delay. Default 100ms.
	MaxBackoff time.Duration
	// Clock stamps documents written by LoadSeed. Default real time.
	Clock clockwork.Clock
}

// Store exposes the Lanefinder documents over a KV backend.
type Store struct {
	kv   KV
	opts Options
}

// New wraps kv.
func New(kv KV, opts Options) *Store {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 2 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 100 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Store{kv: kv, opts: opts}
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

// RunTransaction runs fn atomically. fn may run several times and must not
// have side effects beyond the Txn. When every attempt loses a race the
// returned error wraps ErrConflict. Errors returned by fn abort immediately.
func (s *Store) RunTransaction(ctx context.Context, fn func(Txn) error) error {
	var err error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.RecordTxn("error", attempt)
			return ctxErr
		}

		err = s.kv.Attempt(ctx, fn)
		if err == nil {
			metrics.RecordTxn("committed", attempt)
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			metrics.RecordTxn("error", attempt)
			return err
		}

		logging.Ctx(ctx).Debug().Int("attempt", attempt).Msg("Store transaction conflict, retrying")
		if attempt < s.opts.MaxAttempts {
			if sleepErr := s.backoff(ctx, attempt); sleepErr != nil {
				metrics.RecordTxn("error", attempt)
				return sleepErr
			}
		}
	}
	metrics.RecordTxn("conflict", s.opts.MaxAttempts)
	return fmt.Errorf("gave up after %d attempts: %w", s.opts.MaxAttempts, err)
}

func (s *Store) backoff(ctx context.Context, attempt int) error {
	d := s.opts.BaseBackoff << (attempt - 1)
	if d > s.opts.MaxBackoff || d <= 0 {
		d = s.opts.MaxBackoff
	}
	// Full jitter spreads retrying writers apart.
	d = time.Duration(rand.Int64N(int64(d)) + 1)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
