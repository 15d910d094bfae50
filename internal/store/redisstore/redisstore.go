// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

// Package redisstore implements store.KV on Redis. Transactions use
// WATCH/MULTI/EXEC: every key read inside Attempt is watched, writes are
// queued and applied in one EXEC, and a watched key changing underneath
// surfaces as store.ErrConflict.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/lanefinder/internal/store"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// KV is a Redis-backed store.KV.
type KV struct {
	client redis.UniversalClient
}

var _ store.KV = (*KV)(nil)

// Open connects to Redis and verifies the connection with PING.
func Open(ctx context.Context, cfg Config) (*KV, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return &KV{client: client}, nil
}

// Close closes the client.
func (k *KV) Close() error {
	return k.client.Close()
}

// Get implements store.KV.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := k.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// Scan implements store.KV. Keys are collected with SCAN, sorted, then read
// in batches with MGET; keys deleted between the two steps are skipped.
func (k *KV) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	keys, err := scanKeys(ctx, k.client, prefix)
	if err != nil {
		return err
	}

	const batch = 256
	for start := 0; start < len(keys); start += batch {
		end := min(start+batch, len(keys))
		values, err := k.client.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return fmt.Errorf("mget: %w", err)
		}
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if err := fn(keys[start+i], []byte(s)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Attempt implements store.KV.
func (k *KV) Attempt(ctx context.Context, fn func(store.Txn) error) error {
	err := k.client.Watch(ctx, func(tx *redis.Tx) error {
		t := &redisTxn{ctx: ctx, tx: tx}
		if err := fn(t); err != nil {
			return err
		}
		if len(t.writes) == 0 {
			return nil
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, w := range t.writes {
				if w.delete {
					pipe.Del(ctx, w.key)
				} else {
					pipe.Set(ctx, w.key, w.value, 0)
				}
			}
			return nil
		})
		return err
	})
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("redis exec: %w", store.ErrConflict)
	}
	return err
}

type scanner interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

func scanKeys(ctx context.Context, c scanner, prefix string) ([]string, error) {
	var keys []string
	iter := c.Scan(ctx, 0, escapeGlob(prefix)+"*", 512).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, err)
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

type write struct {
	key    string
	value  []byte
	delete bool
}

type redisTxn struct {
	ctx    context.Context
	tx     *redis.Tx
	writes []write
}

func (t *redisTxn) Get(key string) ([]byte, error) {
	if err := t.tx.Watch(t.ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("watch %s: %w", key, err)
	}
	data, err := t.tx.Get(t.ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

func (t *redisTxn) Keys(prefix string) ([]string, error) {
	keys, err := scanKeys(t.ctx, t.tx, prefix)
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		if err := t.tx.Watch(t.ctx, keys...).Err(); err != nil {
			return nil, fmt.Errorf("watch %s*: %w", prefix, err)
		}
	}
	return keys, nil
}

func (t *redisTxn) Set(key string, value []byte) error {
	t.writes = append(t.writes, write{key: key, value: value})
	return nil
}

func (t *redisTxn) Delete(key string) error {
	t.writes = append(t.writes, write{key: key, delete: true})
	return nil
}
