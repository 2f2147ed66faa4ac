package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/city-enrollment-map/internal/adapter/fixture"
	"github.com/couchcryptid/city-enrollment-map/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/city-enrollment-map/internal/adapter/kafka"
	"github.com/couchcryptid/city-enrollment-map/internal/adapter/mapbox"
	"github.com/couchcryptid/city-enrollment-map/internal/config"
	"github.com/couchcryptid/city-enrollment-map/internal/domain"
	"github.com/couchcryptid/city-enrollment-map/internal/observability"
	"github.com/couchcryptid/city-enrollment-map/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create geocoder", "error", err)
			os.Exit(1)
		}
		geocoder = cached
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	source := enrollmentSource(cfg, logger)

	p := pipeline.New(domain.DefaultCatalog(), source, pipeline.Options{
		Geocoder:      geocoder,
		GeocodeRegion: cfg.GeocodeRegion,
		View: pipeline.ViewSettings{
			Zoom:        cfg.MapZoom,
			Pitch:       cfg.MapPitch,
			MapStyleURL: cfg.MapStyleURL,
		},
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server; /readyz reports 503 until the catalogs are loaded.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Load(ctx); err != nil {
			logger.Error("pipeline load failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func enrollmentSource(cfg *config.Config, logger *slog.Logger) domain.EnrollmentSource {
	switch cfg.EnrollmentSource {
	case config.SourceFile:
		logger.Info("enrollment from fixture file", "path", cfg.EnrollmentFile)
		return fixture.File{Path: cfg.EnrollmentFile}
	case config.SourceKafka:
		logger.Info("enrollment from kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaEnrollmentTopic)
		return kafkaadapter.NewEnrollmentReader(cfg, logger)
	default:
		logger.Info("enrollment from built-in sample")
		return domain.StaticEnrollment(domain.SampleEnrollment())
	}
}
