package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anderwm/KiCost/config"
	httpDelivery "github.com/anderwm/KiCost/internal/delivery/http"
	"github.com/anderwm/KiCost/internal/infrastructure/cache"
	"github.com/anderwm/KiCost/internal/infrastructure/octopart"
	"github.com/anderwm/KiCost/internal/logging"
	"github.com/anderwm/KiCost/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logging.SetDefault(logger)

	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Msg("starting kicost server")

	// Infrastructure
	offerCache := cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	logger.Info().Dur("ttl", cfg.Cache.TTL).Msg("offer cache ready")

	client := octopart.NewClient(cfg.Octopart.APIKey, cfg.Octopart.BaseURL,
		octopart.WithTimeout(cfg.Octopart.Timeout),
		octopart.WithRetries(cfg.Scrape.Retries),
		octopart.WithThrottle(cfg.Scrape.ThrottleDelay),
	)
	if cfg.Server.Environment == "development" {
		client.SetDebug(true)
		logger.Debug().Msg("pricing client debug mode enabled")
	}
	if cfg.Octopart.APIKey == "" {
		logger.Warn().Str("base_url", cfg.Octopart.BaseURL).Msg("pricing API key not configured, price queries will fail")
	}

	// Use cases
	reconciler := usecase.NewReconciliationService(client, offerCache, usecase.ReconciliationConfig{
		BatchSize: cfg.Scrape.BatchSize,
		Workers:   cfg.Scrape.Workers,
		CacheTTL:  cfg.Cache.TTL,
	})
	costing := usecase.NewCostingService(nil, reconciler, nil, usecase.NewLogProgress(&logger), usecase.CostingServiceConfig{})

	handler := httpDelivery.NewHandler(costing)
	router := httpDelivery.SetupRouter(cfg, handler, &logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
