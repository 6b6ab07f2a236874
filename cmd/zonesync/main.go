package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/parking-zone-sync/internal/adapter/feed"
	httpadapter "github.com/couchcryptid/parking-zone-sync/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/parking-zone-sync/internal/adapter/kafka"
	"github.com/couchcryptid/parking-zone-sync/internal/adapter/mapbox"
	"github.com/couchcryptid/parking-zone-sync/internal/config"
	"github.com/couchcryptid/parking-zone-sync/internal/domain"
	"github.com/couchcryptid/parking-zone-sync/internal/heatmap"
	"github.com/couchcryptid/parking-zone-sync/internal/observability"
	"github.com/couchcryptid/parking-zone-sync/internal/refresh"
	"github.com/couchcryptid/parking-zone-sync/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(shutdownTracing, logger)

	normalizer := domain.NewNormalizer(domain.Locale{City: cfg.DefaultCity, Country: cfg.DefaultCountry}, cfg.ClassifierGapBand)

	cadence, err := refresh.CadenceFor(cfg.RefreshSchedule, cfg.RefreshInterval)
	if err != nil {
		logger.Error("invalid refresh cadence", "error", err)
		os.Exit(1)
	}

	var opts []refresh.Option

	// Geocoding fills coordinates the feed leaves out (MAPBOX_ENABLED / MAPBOX_TOKEN).
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		opts = append(opts, refresh.WithGeocoder(mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)))
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var publisher *kafkaadapter.SnapshotPublisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewSnapshotPublisher(cfg, metrics, logger)
		opts = append(opts, refresh.WithPublisher(publisher))
		logger.Info("kafka snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSnapshotTopic)
	}

	zones := store.New()
	fetcher := feed.NewClient(cfg.FeedURL, cfg.FeedTimeout, logger)
	scheduler := refresh.New(fetcher, normalizer, zones, cadence, clockwork.NewRealClock(), metrics, logger, opts...)

	seed := cfg.TrafficSeed
	if seed == 0 {
		seed = rand.Int63()
	}
	profiles := heatmap.NewProfiles(domain.NewSynthesizer(rand.NewSource(seed)), cfg.ProfileCacheSize, metrics)

	// Drop profiles of zones that left the feed.
	updates, unsubscribe := zones.Subscribe()
	defer unsubscribe()
	go func() {
		for snap := range updates {
			if n := profiles.Retain(snap); n > 0 {
				logger.Debug("evicted stale profiles", "count", n)
			}
		}
	}()

	admin := feed.NewAdminClient(cfg.FeedURL, cfg.FeedTimeout, scheduler, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, zones, scheduler, profiles, httpadapter.Options{
		GeohashPrecision: cfg.GeohashPrecision,
		Clock:            clockwork.NewRealClock(),
		RefreshTimeout:   cfg.FeedTimeout * 3,
		Admin:            admin,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start refresh loop.
	go func() {
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("refresh scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	zones.Close()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
