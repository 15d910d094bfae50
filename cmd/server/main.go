// Lanefinder - Bowling Venue Directory and Review Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lanefinder

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/lanefinder/internal/api"
	"github.com/tomtom215/lanefinder/internal/auth"
	"github.com/tomtom215/lanefinder/internal/authz"
	"github.com/tomtom215/lanefinder/internal/config"
	"github.com/tomtom215/lanefinder/internal/logging"
	"github.com/tomtom215/lanefinder/internal/metrics"
	"github.com/tomtom215/lanefinder/internal/ratings"
	"github.com/tomtom215/lanefinder/internal/supervisor"
	"github.com/tomtom215/lanefinder/internal/supervisor/services"
	"github.com/tomtom215/lanefinder/internal/venues"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	primeTimeout    = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

//nolint:gocyclo // Sequential startup wiring
func main() {
	seedPath := flag.String("seed", "", "load venues and pricing reports from a JSON fixture before serving")
	mint := flag.String("mint-token", "", "print a signed token for subject:role and exit")
	mintTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of a token printed by -mint-token")
	flag.Parse()

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	clock := clockwork.NewRealClock()

	jwtManager, err := auth.NewJWTManager(&cfg.Security, clock)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	if *mint != "" {
		token, err := mintToken(jwtManager, *mint, *mintTTL)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to mint token")
		}
		fmt.Println(token)
		return
	}

	logging.Info().
		Str("version", version).
		Str("store_driver", cfg.Store.Driver).
		Str("events_driver", cfg.Events.Driver).
		Str("timezone", cfg.Cache.Location().String()).
		Msg("Starting Lanefinder")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, gc, err := openStore(ctx, &cfg.Store, clock)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	if *seedPath != "" {
		if err := loadSeed(ctx, st, *seedPath); err != nil {
			logging.Error().Err(err).Str("path", *seedPath).Msg("Failed to load seed data")
			return
		}
	}

	caches := buildCaches(st, cfg, clock)

	ev, err := initEvents(&cfg.Events, caches.registry)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize invalidation bus")
		return
	}
	defer ev.Close()

	primeCtx, primeCancel := context.WithTimeout(ctx, primeTimeout)
	if err := caches.registry.PrimeAll(primeCtx); err != nil {
		logging.Warn().Err(err).Msg("Initial cache warm-up incomplete; caches will refresh on demand")
	}
	primeCancel()

	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{
		ModelPath:  cfg.Security.CasbinModelPath,
		PolicyPath: cfg.Security.CasbinPolicyPath,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize authorization")
		return
	}

	reviewLimiter := api.NewReviewLimiter(cfg.Security.ReviewRatePerMinute, clock)
	handler, err := api.NewHandler(api.Dependencies{
		Venues:        caches.venues,
		Reviews:       caches.reviews,
		RecentReviews: caches.recent,
		Pricing:       caches.pricing,
		VenueService:  venues.NewService(st, caches.registry, clock),
		Ratings:       ratings.NewAggregator(st, caches.registry, ratings.WithClock(clock)),
		Registry:      caches.registry,
		ReviewLimiter: reviewLimiter,
		Config:        cfg,
		Clock:         clock,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create API handler")
		return
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	router := api.NewRouter(handler, jwtManager, enforcer, api.ChiMiddlewareConfigFromSecurity(&cfg.Security))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	watchLogLevel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  shutdownTimeout,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	if gc != nil {
		tree.AddDataService(gc)
	}

	if ev.listener != nil {
		tree.AddCacheService(ev.listener)
	}
	if cfg.Cache.WarmAtMidnight {
		tree.AddCacheService(caches.warmer(clock, cfg.Cache.Location()))
		logging.Info().Msg("Midnight cache warmer added to supervisor tree")
	}

	if reviewLimiter != nil {
		tree.AddAPIService(reviewLimiter)
	}
	tree.AddAPIService(services.NewHTTPServerService(server, addr, shutdownTimeout))
	logging.Info().Str("addr", addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// watchLogLevel reapplies logging.level whenever the config file changes.
// Other settings need a restart.
func watchLogLevel() {
	path := config.ConfigFile()
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.LoadWithKoanf()
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid configuration change")
			return
		}
		level := logging.ParseLevel(cfg.Logging.Level)
		if level != logging.GetLevel() {
			logging.SetLevel(level)
			logging.Info().Str("level", level.String()).Msg("Log level changed")
		}
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch disabled")
	}
}
