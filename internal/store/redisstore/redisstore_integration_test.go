// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

//go:build integration

package redisstore

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tomtom215/lanefinder/internal/store"
	"github.com/tomtom215/lanefinder/internal/testinfra"
)

func startKV(t *testing.T) *KV {
	t.Helper()
	testinfra.SkipIfNoDocker(t)

	ctx := context.Background()
	rc, err := testinfra.StartRedis(ctx, t)
	if err != nil {
		t.Fatalf("StartRedis: %v", err)
	}
	kv, err := Open(ctx, Config{Addr: rc.Addr})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestRedisKV(t *testing.T) {
	kv := startKV(t)
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		if _, err := kv.Get(ctx, "venue:none"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("commit and scan", func(t *testing.T) {
		err := kv.Attempt(ctx, func(txn store.Txn) error {
			for _, k := range []string{"review:v1:b", "review:v1:a", "review:v2:a"} {
				if err := txn.Set(k, []byte(k)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Attempt: %v", err)
		}
		var got []string
		if err := kv.Scan(ctx, "review:v1:", func(key string, _ []byte) error {
			got = append(got, key)
			return nil
		}); err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if want := []string{"review:v1:a", "review:v1:b"}; !reflect.DeepEqual(got, want) {
			t.Errorf("Scan keys = %v, want %v", got, want)
		}
	})

	t.Run("watched key conflict", func(t *testing.T) {
		if err := kv.Attempt(ctx, func(txn store.Txn) error { return txn.Set("venue:v1", []byte("0")) }); err != nil {
			t.Fatalf("seed: %v", err)
		}
		err := kv.Attempt(ctx, func(txn store.Txn) error {
			if _, err := txn.Get("venue:v1"); err != nil {
				return err
			}
			if err := kv.client.Set(ctx, "venue:v1", "1", 0).Err(); err != nil {
				t.Errorf("competing write: %v", err)
			}
			return txn.Set("venue:v1", []byte("2"))
		})
		if !errors.Is(err, store.ErrConflict) {
			t.Fatalf("Attempt() error = %v, want ErrConflict", err)
		}
		got, _ := kv.Get(ctx, "venue:v1")
		if string(got) != "1" {
			t.Errorf("venue:v1 = %q, want the competing write", got)
		}
	})

	t.Run("store retries to success", func(t *testing.T) {
		s := store.New(kv, store.Options{MaxAttempts: 3})
		calls := 0
		err := s.RunTransaction(ctx, func(txn store.Txn) error {
			calls++
			if _, err := txn.Get("venue:v1"); err != nil {
				return err
			}
			if calls == 1 {
				_ = kv.client.Set(ctx, "venue:v1", "interloper", 0).Err()
			}
			return txn.Set("venue:v1", []byte("final"))
		})
		if err != nil {
			t.Fatalf("RunTransaction: %v", err)
		}
		if calls != 2 {
			t.Errorf("calls = %d, want 2", calls)
		}
	})
}
