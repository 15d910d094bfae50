// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package badgerstore

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tomtom215/lanefinder/internal/store"
)

func openTestKV(t *testing.T) *KV {
	t.Helper()
	kv, err := Open(Config{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestGetMissingKey(t *testing.T) {
	t.Parallel()

	kv := openTestKV(t)
	if _, err := kv.Get(context.Background(), "venue:nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestAttemptCommitsAndScans(t *testing.T) {
	t.Parallel()

	kv := openTestKV(t)
	ctx := context.Background()

	err := kv.Attempt(ctx, func(txn store.Txn) error {
		for _, k := range []string{"review:v1:b", "review:v1:a", "review:v2:a", "venue:v1"} {
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
	err = kv.Scan(ctx, "review:v1:", func(key string, value []byte) error {
		if string(value) != key {
			t.Errorf("value for %s = %q", key, value)
		}
		got = append(got, key)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if want := []string{"review:v1:a", "review:v1:b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Scan keys = %v, want %v", got, want)
	}
}

func TestAttemptAbortsOnError(t *testing.T) {
	t.Parallel()

	kv := openTestKV(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := kv.Attempt(ctx, func(txn store.Txn) error {
		if err := txn.Set("venue:v1", []byte("x")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Attempt() error = %v, want boom", err)
	}
	if _, err := kv.Get(ctx, "venue:v1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("aborted write is visible: %v", err)
	}
}

func TestAttemptReportsConflict(t *testing.T) {
	t.Parallel()

	kv := openTestKV(t)
	ctx := context.Background()
	if err := kv.Attempt(ctx, func(txn store.Txn) error { return txn.Set("venue:v1", []byte("0")) }); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := kv.Attempt(ctx, func(txn store.Txn) error {
		if _, err := txn.Get("venue:v1"); err != nil {
			return err
		}
		// A competing writer commits between our read and our commit.
		if err := kv.Attempt(ctx, func(inner store.Txn) error { return inner.Set("venue:v1", []byte("1")) }); err != nil {
			t.Errorf("inner Attempt: %v", err)
		}
		return txn.Set("venue:v1", []byte("2"))
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Attempt() error = %v, want ErrConflict", err)
	}

	got, err := kv.Get(ctx, "venue:v1")
	if err != nil || string(got) != "1" {
		t.Errorf("Get() = %q, %v; want the competing write", got, err)
	}
}

func TestTxnKeysAndDelete(t *testing.T) {
	t.Parallel()

	kv := openTestKV(t)
	ctx := context.Background()
	if err := kv.Attempt(ctx, func(txn store.Txn) error {
		_ = txn.Set("review:v1:a", []byte("a"))
		return txn.Set("review:v1:b", []byte("b"))
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := kv.Attempt(ctx, func(txn store.Txn) error {
		keys, err := txn.Keys("review:v1:")
		if err != nil {
			return err
		}
		if len(keys) != 2 {
			t.Errorf("Keys() = %v, want 2 keys", keys)
		}
		return txn.Delete("review:v1:a")
	})
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if _, err := kv.Get(ctx, "review:v1:a"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("deleted key still present: %v", err)
	}
}

func TestInMemoryAndGC(t *testing.T) {
	t.Parallel()

	kv, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open in-memory: %v", err)
	}
	defer kv.Close()

	if n := NewGCService(kv, 0).RunOnce(); n != 0 {
		t.Errorf("RunOnce() on in-memory db = %d, want 0", n)
	}
}
