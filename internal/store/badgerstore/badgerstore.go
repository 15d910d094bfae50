// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

// Package badgerstore implements store.KV on BadgerDB. Badger transactions
// are serializable snapshot transactions: every key read inside Attempt is
// checked at commit and a concurrent write surfaces as store.ErrConflict.
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/lanefinder/internal/store"
)

// Config configures the on-disk database.
type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
}

// KV is a BadgerDB-backed store.KV.
type KV struct {
	db *badger.DB
}

var _ store.KV = (*KV)(nil)

// Open opens (or creates) the database described by cfg.
func Open(cfg Config) (*KV, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}
	return &KV{db: db}, nil
}

// Close closes the database.
func (k *KV) Close() error {
	return k.db.Close()
}

// Get implements store.KV.
func (k *KV) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := k.db.View(func(txn *badger.Txn) error {
		v, err := get(txn, key)
		out = v
		return err
	})
	return out, err
}

// Scan implements store.KV.
func (k *KV) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	return k.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read %s: %w", item.Key(), err)
			}
			if err := fn(string(item.KeyCopy(nil)), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Attempt implements store.KV.
func (k *KV) Attempt(ctx context.Context, fn func(store.Txn) error) error {
	txn := k.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(&badgerTxn{txn: txn}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return fmt.Errorf("badger commit: %w", store.ErrConflict)
		}
		return fmt.Errorf("badger commit: %w", err)
	}
	return nil
}

func get(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return item.ValueCopy(nil)
}

type badgerTxn struct {
	txn *badger.Txn
}

func (t *badgerTxn) Get(key string) ([]byte, error) {
	return get(t.txn, key)
}

func (t *badgerTxn) Keys(prefix string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var keys []string
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, string(it.Item().KeyCopy(nil)))
	}
	return keys, nil
}

func (t *badgerTxn) Set(key string, value []byte) error {
	if err := t.txn.Set([]byte(key), value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (t *badgerTxn) Delete(key string) error {
	if err := t.txn.Delete([]byte(key)); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
