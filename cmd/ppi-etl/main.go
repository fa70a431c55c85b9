package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/radar-ppi-etl/internal/adapter/classifier"
	httpadapter "github.com/couchcryptid/radar-ppi-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/radar-ppi-etl/internal/adapter/kafka"
	sqliteadapter "github.com/couchcryptid/radar-ppi-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/radar-ppi-etl/internal/config"
	"github.com/couchcryptid/radar-ppi-etl/internal/observability"
	"github.com/couchcryptid/radar-ppi-etl/internal/pipeline"
	"github.com/couchcryptid/radar-ppi-etl/internal/radar"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Classifier is feature-flagged via CLASSIFIER_URL / CLASSIFIER_ENABLED.
	// Without one the pipeline still publishes unclassified products.
	var clf radar.Classifier
	if cfg.ClassifierEnabled {
		clf = classifier.NewClient(cfg.ClassifierURL, cfg.ClassifierTimeout, logger)
		metrics.ClassifierEnabled.Set(1)
		logger.Info("classifier enabled", "url", cfg.ClassifierURL, "timeout", cfg.ClassifierTimeout)
	} else {
		logger.Info("classifier disabled, products will be unclassified")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	var loader pipeline.BatchLoader = writer
	var stats httpadapter.StatsProvider
	if cfg.ArchivePath != "" {
		archive, err := sqliteadapter.Open(cfg.ArchivePath, logger)
		if err != nil {
			logger.Error("failed to open product archive", "error", err, "path", cfg.ArchivePath)
			os.Exit(1)
		}
		defer archive.Close()
		loader = sqliteadapter.NewArchivingLoader(writer, archive, logger)
		stats = archive
		logger.Info("product archive enabled", "path", cfg.ArchivePath)
	}

	transformer := pipeline.NewTransformer(clf, pipeline.Options{
		Elevation:          cfg.Elevation,
		ElevationTolerance: cfg.ElevationTolerance,
		MaxRange:           cfg.MaxRange,
		Resolution:         cfg.RasterResolution,
		WeatherThreshold:   cfg.WeatherThreshold,
		ClassifyTimeout:    cfg.ClassifierTimeout,
	}, logger, metrics)

	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, stats, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
