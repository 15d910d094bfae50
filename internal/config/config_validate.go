// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	minJWTSecretLength = 32
	maxTxnAttempts     = 100
	minRefreshTimeout  = 100 * time.Millisecond
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateStore,
		c.validateCache,
		c.validatePricing,
		c.validateEvents,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging or production, got %q", c.Server.Environment)
	}
	if c.Server.PublicBaseURL != "" {
		u, err := url.Parse(c.Server.PublicBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("PUBLIC_BASE_URL must be an absolute http(s) URL")
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "badger":
		if c.Store.Path == "" && !c.Store.InMemory {
			return fmt.Errorf("STORE_PATH is required when STORE_DRIVER=badger")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when STORE_DRIVER=redis")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be badger or redis, got %q", c.Store.Driver)
	}
	if c.Store.MaxTxnAttempts < 1 || c.Store.MaxTxnAttempts > maxTxnAttempts {
		return fmt.Errorf("STORE_MAX_TXN_ATTEMPTS must be between 1 and %d", maxTxnAttempts)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Timezone != "" && c.Cache.Timezone != "Local" {
		if _, err := time.LoadLocation(c.Cache.Timezone); err != nil {
			return fmt.Errorf("CACHE_TIMEZONE %q is not a known zone: %w", c.Cache.Timezone, err)
		}
	}
	if c.Cache.RefreshTimeout < minRefreshTimeout {
		return fmt.Errorf("CACHE_REFRESH_TIMEOUT must be at least %s", minRefreshTimeout)
	}
	if c.Cache.VenuesMaxAge < 0 {
		return fmt.Errorf("VENUES_CACHE_MAX_AGE must not be negative")
	}
	if c.Cache.RecentReviewsLimit < 1 || c.Cache.ReviewsPerVenue < 1 {
		return fmt.Errorf("RECENT_REVIEWS_LIMIT and REVIEWS_PER_VENUE must be positive")
	}
	if c.Cache.BreakerFailures == 0 {
		return fmt.Errorf("CACHE_BREAKER_FAILURES must be positive")
	}
	if c.Cache.BreakerTimeout <= 0 {
		return fmt.Errorf("CACHE_BREAKER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validatePricing() error {
	if c.Pricing.LookbackDays < 1 || c.Pricing.LookbackDays > 31 {
		return fmt.Errorf("PRICING_LOOKBACK_DAYS must be between 1 and 31")
	}
	for i, region := range c.Pricing.ExcludedRegions {
		c.Pricing.ExcludedRegions[i] = strings.ToUpper(strings.TrimSpace(region))
	}
	return nil
}

func (c *Config) validateEvents() error {
	switch c.Events.Driver {
	case "memory":
	case "nats":
		if !c.Events.EmbeddedServer {
			u, err := url.Parse(c.Events.NATSURL)
			if err != nil || u.Scheme != "nats" {
				return fmt.Errorf("NATS_URL must use the nats:// scheme")
			}
		}
		if c.Events.EmbeddedServer && (c.Events.EmbeddedPort < 1 || c.Events.EmbeddedPort > 65535) {
			return fmt.Errorf("NATS_EMBEDDED_PORT must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("EVENTS_DRIVER must be memory or nats, got %q", c.Events.Driver)
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("EVENTS_TOPIC must not be empty")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	secret := c.Security.JWTSecret
	if secret == "" && c.Server.IsProduction() {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if secret != "" && len(secret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.Server.IsProduction() {
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain * in production")
			}
		}
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 || c.Security.RateLimitReqs > 100000 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be between 1 and 100000")
		}
		if c.Security.RateLimitWindow < time.Second || c.Security.RateLimitWindow > time.Hour {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be between 1s and 1h")
		}
	}
	if c.Security.ReviewRatePerMinute < 1 {
		return fmt.Errorf("REVIEW_RATE_PER_MINUTE must be positive")
	}
	if (c.Security.CasbinModelPath == "") != (c.Security.CasbinPolicyPath == "") {
		return fmt.Errorf("CASBIN_MODEL_PATH and CASBIN_POLICY_PATH must be set together")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be trace, debug, info, warn or error")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}
