// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

// Package config loads Lanefinder configuration from built-in defaults, an
// optional YAML file and the environment, in that order of precedence.
package config

import (
	"time"
)

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Cache    CacheConfig    `koanf:"cache"`
	Pricing  PricingConfig  `koanf:"pricing"`
	Events   EventsConfig   `koanf:"events"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port          int           `koanf:"port"`
	Host          string        `koanf:"host"`
	Timeout       time.Duration `koanf:"timeout"`
	Environment   string        `koanf:"environment"` // development, staging, production
	PublicBaseURL string        `koanf:"public_base_url"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Driver        string `koanf:"driver"` // badger or redis
	Path          string `koanf:"path"`
	InMemory      bool   `koanf:"in_memory"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// MaxTxnAttempts bounds optimistic transaction retries on conflict.
	MaxTxnAttempts int `koanf:"max_txn_attempts"`
}

// CacheConfig controls the daily snapshot caches.
type CacheConfig struct {
	// Timezone is the IANA zone whose midnight expires snapshots. "Local" uses
	// the process zone.
	Timezone string `koanf:"timezone"`

	RefreshTimeout     time.Duration `koanf:"refresh_timeout"`
	VenuesMaxAge       time.Duration `koanf:"venues_cache_max_age"`
	RecentReviewsLimit int           `koanf:"recent_reviews_limit"`
	ReviewsPerVenue    int           `koanf:"reviews_per_venue"`

	// BreakerFailures consecutive refresh failures open the store breaker
	// for BreakerTimeout.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`

	WarmAtMidnight bool `koanf:"warm_at_midnight"`
}

// PricingConfig controls the pricing report snapshot.
type PricingConfig struct {
	ExcludedRegions []string `koanf:"excluded_regions"`
	LookbackDays    int      `koanf:"lookback_days"`
}

// EventsConfig configures cross-instance cache invalidation.
type EventsConfig struct {
	Driver         string `koanf:"driver"` // memory or nats
	NATSURL        string `koanf:"nats_url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	EmbeddedPort   int    `koanf:"embedded_port"`
	Topic          string `koanf:"topic"`
}

// SecurityConfig holds authentication, authorization and rate limit settings.
type SecurityConfig struct {
	JWTSecret           string        `koanf:"jwt_secret"`
	JWTIssuer           string        `koanf:"jwt_issuer"`
	CORSOrigins         []string      `koanf:"cors_origins"`
	RateLimitReqs       int           `koanf:"rate_limit_reqs"`
	RateLimitWindow     time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled   bool          `koanf:"rate_limit_disabled"`
	ReviewRatePerMinute int           `koanf:"review_rate_per_minute"`
	CasbinModelPath     string        `koanf:"casbin_model_path"`
	CasbinPolicyPath    string        `koanf:"casbin_policy_path"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Location resolves Cache.Timezone. Validate guarantees it loads.
func (c *CacheConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsProduction reports whether production-only checks apply.
func (s *ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}
