package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

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

	raw := storage.NewRawStore(cfg.RawDir, clock)
	processed := storage.NewProcessedStore(cfg.ProcessedDir)
	tidier := pipeline.NewTidier(cfg, raw, processed, logger, metrics, clock)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tidier.Run(ctx); err != nil {
		logger.Error("tidy failed", "error", err)
	}

	if cfg.MetricsFile != "" {
		if err := metrics.Export(cfg.MetricsFile); err != nil {
			logger.Error("metrics export failed", "error", err)
		}
	}
}
