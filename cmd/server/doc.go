// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

/*
Package main is the entry point for the Lanefinder server.

Lanefinder is a directory of bowling venues. It serves venue listings,
category and location facets, reviewer ratings and daily pricing reports from
snapshots that are refreshed once per day and invalidated on every write.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("lanefinder")
	├── DataSupervisor ("data-layer")
	│   └── BadgerDB value-log GC (badger driver, on disk)
	├── CacheSupervisor ("cache-layer")
	│   ├── Invalidation listener (memory or NATS bus)
	│   └── Midnight warmer (CACHE_WARM_AT_MIDNIGHT)
	└── APISupervisor ("api-layer")
	    ├── Review rate limiter sweeper
	    └── HTTP server

Component initialization order:

 1. Configuration: Koanf v2 with defaults, YAML file and environment
 2. Logging: zerolog with JSON/console output modes
 3. Store: BadgerDB or Redis behind the document store
 4. Snapshots: venues, reviews, recent reviews and pricing, each behind a
    circuit breaker
 5. Invalidation bus: in-process gochannel or NATS, optionally embedded
 6. Warm-up: every snapshot is primed before the listener opens
 7. Authentication and authorization: JWT and Casbin
 8. HTTP Server: Chi router with middleware stack

# Configuration

Configuration is layered (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	HTTP_PORT=8080
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console
	STORE_DRIVER=badger          # badger or redis
	STORE_PATH=/data/lanefinder
	CACHE_TIMEZONE=America/Chicago
	EVENTS_DRIVER=memory         # memory or nats
	JWT_SECRET=<32+ chars>

The config file named by CONFIG_PATH is watched; a change to logging.level is
applied without a restart.

# Flags

	-seed fixture.json           upsert venues and pricing reports, then serve
	-mint-token subject:role     print a signed token and exit
	-token-ttl 24h               lifetime of a minted token

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests for up to 10 seconds, then the bus and store are closed.
*/
package main
