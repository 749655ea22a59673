package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/datosviales/siniestros-etl/internal/adapter/axa"
	"github.com/datosviales/siniestros-etl/internal/adapter/inegi"
	"github.com/datosviales/siniestros-etl/internal/adapter/openmeteo"
	"github.com/datosviales/siniestros-etl/internal/config"
	"github.com/datosviales/siniestros-etl/internal/observability"
	"github.com/datosviales/siniestros-etl/internal/pipeline"
	"github.com/datosviales/siniestros-etl/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	runID := uuid.NewString()
	logger := observability.NewLogger(cfg).With("run_id", runID)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	store := storage.NewRawStore(cfg.RawDir, clock)
	fetcher := pipeline.NewFetcher(cfg, store,
		axa.NewClient(cfg.AXABaseURL, cfg.RequestTimeout, logger),
		inegi.NewClient(cfg.INEGIArchiveURL, cfg.RequestTimeout, logger),
		openmeteo.NewClient(cfg.WeatherBaseURL, cfg.RequestTimeout, logger),
		logger, metrics, clock, runID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fetcher.Run(ctx); err != nil {
		logger.Error("fetch interrupted", "error", err)
	}

	if cfg.MetricsFile != "" {
		if err := metrics.Export(cfg.MetricsFile); err != nil {
			logger.Error("metrics export failed", "error", err)
		}
	}
}
