// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

/*
Package events fans snapshot cache invalidations out to every Lanefinder
instance.

A write on one instance invalidates its local cache and publishes a
CacheInvalidated message. Every instance runs a Listener that applies
invalidations published by other instances to its own registry and ignores
its own messages.

Two transports are supported through Watermill:

  - memory: the gochannel pub/sub, for a single process and tests
  - nats: core NATS subjects (JetStream disabled) against an external server
    or an embedded nats-server

Delivery is at-most-once. A lost message leaves a remote snapshot stale until
its next midnight refresh.
*/
package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// DefaultTopic is the subject invalidations are published on.
const DefaultTopic = "lanefinder.cache.invalidate"

// CacheInvalidated is the message payload.
type CacheInvalidated struct {
	Cache  string    `json:"cache"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Validate checks the required fields.
func (e *CacheInvalidated) Validate() error {
	if e.Cache == "" {
		return errors.New("cache is required")
	}
	if e.Origin == "" {
		return errors.New("origin is required")
	}
	return nil
}

// Encode serializes the event.
func (e *CacheInvalidated) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return json.Marshal(e)
}

// Decode parses and validates a payload.
func Decode(payload []byte) (*CacheInvalidated, error) {
	var e CacheInvalidated
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("decode invalidation: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return &e, nil
}
