// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

// Package storetest provides in-memory stores for tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/lanefinder/internal/models"
	"github.com/tomtom215/lanefinder/internal/store"
	"github.com/tomtom215/lanefinder/internal/store/badgerstore"
)

// New opens an in-memory badger-backed store that is closed when t ends.
func New(t testing.TB) *store.Store {
	t.Helper()
	return NewWithOptions(t, store.Options{MaxAttempts: 50, BaseBackoff: time.Microsecond, MaxBackoff: time.Millisecond})
}

// NewWithOptions is New with explicit retry options.
func NewWithOptions(t testing.TB, opts store.Options) *store.Store {
	t.Helper()
	kv, err := badgerstore.Open(badgerstore.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open in-memory badger: %v", err)
	}
	s := store.New(kv, opts)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// PutVenues writes venues as-is, aggregates included.
func PutVenues(t testing.TB, s *store.Store, venues ...models.Venue) {
	t.Helper()
	err := s.RunTransaction(context.Background(), func(txn store.Txn) error {
		for i := range venues {
			if err := store.PutVenueTx(txn, &venues[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("put venues: %v", err)
	}
}

// PutReviews writes reviews without touching venue aggregates.
func PutReviews(t testing.TB, s *store.Store, reviews ...models.Review) {
	t.Helper()
	err := s.RunTransaction(context.Background(), func(txn store.Txn) error {
		for i := range reviews {
			if err := store.PutReviewTx(txn, &reviews[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("put reviews: %v", err)
	}
}
