// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package events

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/metrics"
	"github.com/tomtom215/lanefinder/internal/snapshot"
)

// LocalInvalidator applies an invalidation without publishing it again.
type LocalInvalidator interface {
	InvalidateLocal(cacheID, source string) error
}

// Listener applies invalidations from other instances. It implements
// suture.Service.
type Listener struct {
	bus     *Bus
	target  LocalInvalidator
	ready   chan struct{}
	onReady sync.Once
}

func NewListener(bus *Bus, target LocalInvalidator) *Listener {
	return &Listener{bus: bus, target: target, ready: make(chan struct{})}
}

// Ready is closed once the first subscription is established.
func (l *Listener) Ready() <-chan struct{} {
	return l.ready
}

// Serve consumes messages until ctx is done.
func (l *Listener) Serve(ctx context.Context) error {
	msgs, err := l.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	l.onReady.Do(func() { close(l.ready) })

	log := logging.WithComponent("events")
	log.Info().Str("topic", l.bus.Topic()).Str("origin", l.bus.Origin()).Msg("Listening for cache invalidations")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("invalidation subscription closed")
			}
			l.handle(msg.Payload)
			msg.Ack()
		}
	}
}

func (l *Listener) handle(payload []byte) {
	log := logging.WithComponent("events")
	ev, err := Decode(payload)
	if err != nil {
		metrics.RecordBusMessage("failed")
		log.Warn().Err(err).Msg("Dropping malformed invalidation")
		return
	}
	if ev.Origin == l.bus.Origin() {
		metrics.RecordBusMessage("ignored")
		return
	}
	metrics.RecordBusMessage("received")
	if err := l.target.InvalidateLocal(ev.Cache, snapshot.SourceRemote); err != nil {
		log.Debug().Err(err).Str("cache", ev.Cache).Msg("Ignoring invalidation for unregistered cache")
		return
	}
	log.Debug().Str("cache", ev.Cache).Str("origin", ev.Origin).Msg("Applied remote cache invalidation")
}

func (l *Listener) String() string {
	return "invalidation-listener"
}
