// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/lanefinder/config.yaml",
	"/etc/lanefinder/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPath is loaded into the process environment when present. Variables
// that are already set are not overwritten.
var DotEnvPath = ".env"

// Default returns the built-in configuration, the lowest layer of
// LoadWithKoanf. Tests and tools use it directly.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          8080,
			Host:          "0.0.0.0",
			Timeout:       30 * time.Second,
			Environment:   "development",
			PublicBaseURL: "http://localhost:8080",
		},
		Store: StoreConfig{
			Driver:         "badger",
			Path:           "/data/lanefinder",
			InMemory:       false,
			RedisAddr:      "127.0.0.1:6379",
			RedisDB:        0,
			MaxTxnAttempts: 10,
		},
		Cache: CacheConfig{
			Timezone:           "Local",
			RefreshTimeout:     30 * time.Second,
			VenuesMaxAge:       time.Hour,
			RecentReviewsLimit: 20,
			ReviewsPerVenue:    50,
			BreakerFailures:    5,
			BreakerTimeout:     time.Minute,
			WarmAtMidnight:     true,
		},
		Pricing: PricingConfig{
			ExcludedRegions: []string{"AK", "HI", "PR", "DC", "GU", "VI"},
			LookbackDays:    3,
		},
		Events: EventsConfig{
			Driver:         "memory",
			NATSURL:        "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			EmbeddedPort:   4222,
			Topic:          "lanefinder.cache.invalidate",
		},
		Security: SecurityConfig{
			JWTIssuer:           "lanefinder",
			CORSOrigins:         []string{"*"},
			RateLimitReqs:       100,
			RateLimitWindow:     time.Minute,
			ReviewRatePerMinute: 6,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf builds the configuration from three layers, later layers
// winning: struct defaults, the optional YAML file, then environment variables
// (after merging any .env file). The result is validated before it is returned.
func LoadWithKoanf() (*Config, error) {
	if err := loadDotEnv(DotEnvPath); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ConfigFile returns the config file LoadWithKoanf reads, or "" when none
// exists.
func ConfigFile() string {
	return findConfigFile()
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"pricing.excluded_regions",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps flat environment variable names (lower-cased) to koanf
// paths. Unlisted variables are ignored.
var envMappings = map[string]string{
	"http_port":       "server.port",
	"http_host":       "server.host",
	"http_timeout":    "server.timeout",
	"environment":     "server.environment",
	"public_base_url": "server.public_base_url",

	"store_driver":           "store.driver",
	"store_path":             "store.path",
	"store_in_memory":        "store.in_memory",
	"redis_addr":             "store.redis_addr",
	"redis_password":         "store.redis_password",
	"redis_db":               "store.redis_db",
	"store_max_txn_attempts": "store.max_txn_attempts",

	"cache_timezone":         "cache.timezone",
	"cache_refresh_timeout":  "cache.refresh_timeout",
	"venues_cache_max_age":   "cache.venues_cache_max_age",
	"recent_reviews_limit":   "cache.recent_reviews_limit",
	"reviews_per_venue":      "cache.reviews_per_venue",
	"cache_breaker_failures": "cache.breaker_failures",
	"cache_breaker_timeout":  "cache.breaker_timeout",
	"cache_warm_at_midnight": "cache.warm_at_midnight",

	"pricing_excluded_regions": "pricing.excluded_regions",
	"pricing_lookback_days":    "pricing.lookback_days",

	"events_driver":      "events.driver",
	"nats_url":           "events.nats_url",
	"nats_embedded":      "events.embedded_server",
	"nats_embedded_port": "events.embedded_port",
	"events_topic":       "events.topic",

	"jwt_secret":             "security.jwt_secret",
	"jwt_issuer":             "security.jwt_issuer",
	"cors_origins":           "security.cors_origins",
	"rate_limit_requests":    "security.rate_limit_reqs",
	"rate_limit_window":      "security.rate_limit_window",
	"disable_rate_limit":     "security.rate_limit_disabled",
	"review_rate_per_minute": "security.review_rate_per_minute",
	"casbin_model_path":      "security.casbin_model_path",
	"casbin_policy_path":     "security.casbin_policy_path",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path, for
// example HTTP_PORT -> server.port and CACHE_TIMEZONE -> cache.timezone.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile invokes callback whenever the file at path changes. The
// caller owns any locking around the reloaded configuration.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
