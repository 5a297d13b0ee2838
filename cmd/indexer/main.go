package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/peakline/catalog-search/internal/app"
	"github.com/peakline/catalog-search/internal/config"
	"github.com/peakline/catalog-search/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("catalog-search-indexer", cfg.LogLevel)
	log.Info("starting catalog indexing worker",
		slog.String("environment", cfg.Environment),
		slog.Duration("poll_interval", cfg.IndexerPollInterval),
		slog.Int("batch_size", cfg.IndexerBatchSize),
	)

	if !cfg.IndexerEnabled {
		log.Warn("indexer disabled by configuration, exiting")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.NewIndexer(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("catalog indexing worker stopped")
}
