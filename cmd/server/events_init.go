// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package main

import (
	"fmt"

	"github.com/tomtom215/lanefinder/internal/config"
	"github.com/tomtom215/lanefinder/internal/events"
	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/snapshot"
)

const embeddedNATSHost = "127.0.0.1"

// eventComponents holds the invalidation bus and everything it depends on.
type eventComponents struct {
	server   *events.EmbeddedServer
	bus      *events.Bus
	listener *events.Listener
}

// initEvents connects the invalidation bus and makes registry publish to it.
// The returned listener belongs in the cache layer of the supervisor tree.
func initEvents(cfg *config.EventsConfig, registry *snapshot.Registry) (*eventComponents, error) {
	logger := logging.NewWatermillAdapter(logging.WithComponent("events"))
	ev := &eventComponents{}

	switch cfg.Driver {
	case "memory", "":
		ev.bus = events.NewMemoryBus(cfg.Topic, logger)
		logging.Info().Str("topic", ev.bus.Topic()).Msg("In-process invalidation bus ready")

	case "nats":
		url := cfg.NATSURL
		if cfg.EmbeddedServer {
			srv, err := events.StartEmbeddedServer(embeddedNATSHost, cfg.EmbeddedPort)
			if err != nil {
				return nil, fmt.Errorf("start embedded NATS: %w", err)
			}
			ev.server = srv
			url = srv.ClientURL()
			logging.Info().Str("url", url).Msg("Embedded NATS server started")
		}
		bus, err := events.NewNATSBus(events.NATSConfig{URL: url, Topic: cfg.Topic}, logger)
		if err != nil {
			ev.Close()
			return nil, err
		}
		ev.bus = bus
		logging.Info().Str("url", url).Str("topic", bus.Topic()).Str("origin", bus.Origin()).Msg("NATS invalidation bus connected")

	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}

	registry.SetPublisher(ev.bus)
	ev.listener = events.NewListener(ev.bus, registry)
	return ev, nil
}

// Close closes the bus, then stops any embedded server.
func (ev *eventComponents) Close() {
	if ev.bus != nil {
		if err := ev.bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing invalidation bus")
		}
	}
	if ev.server != nil {
		ev.server.Shutdown()
	}
}
