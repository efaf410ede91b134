// Command heatwaved runs the heat wave detection service: it consumes
// detection requests from Kafka, publishes reports to the sink topic and
// serves the synchronous HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/heatwave-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/heatwave-etl/internal/adapter/kafka"
	"github.com/couchcryptid/heatwave-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/heatwave-etl/internal/adapter/station"
	"github.com/couchcryptid/heatwave-etl/internal/config"
	"github.com/couchcryptid/heatwave-etl/internal/observability"
	"github.com/couchcryptid/heatwave-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stations := station.NewDir(cfg.StationDir)
	var series pipeline.SeriesLoader = stations
	if cfg.StationCacheSize > 0 {
		series = station.NewCachedDir(stations, cfg.StationCacheSize)
	}
	var opts []pipeline.DetectorOption

	// Results store and CSV export are both optional.
	var store *sqlite.Store
	if cfg.SQLitePath != "" {
		store, err = sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Error("failed to open results store", "error", err, "path", cfg.SQLitePath)
			os.Exit(1)
		}
		opts = append(opts, pipeline.WithStore(store))
		logger.Info("results store enabled", "path", cfg.SQLitePath)
	}
	if cfg.Export {
		opts = append(opts, pipeline.WithExporter(stations))
		logger.Info("csv export enabled", "dir", cfg.StationDir)
	}

	detector := pipeline.NewDetector(series, cfg.Detection, logger, metrics, opts...)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(detector, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, detector, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start detection pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	logger.Info("heatwaved started",
		"station_dir", cfg.StationDir,
		"station_cache", cfg.StationCacheSize,
		"season", cfg.Detection.Season.String(),
		"reference_start", cfg.Detection.ReferenceStart.Format("2006-01-02"),
		"reference_end", cfg.Detection.ReferenceEnd.Format("2006-01-02"),
	)

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
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("results store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
