package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/station-observation-etl/internal/adapter/csvsource"
	httpadapter "github.com/couchcryptid/station-observation-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/station-observation-etl/internal/adapter/kafka"
	"github.com/couchcryptid/station-observation-etl/internal/config"
	"github.com/couchcryptid/station-observation-etl/internal/domain"
	"github.com/couchcryptid/station-observation-etl/internal/observability"
	"github.com/couchcryptid/station-observation-etl/internal/pipeline"
	"github.com/couchcryptid/station-observation-etl/internal/scheduler"
	"github.com/couchcryptid/station-observation-etl/internal/store"
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

	// Station catalog: loaded once before consuming, then refreshed on a schedule.
	matcherOpts := []domain.MatcherOption{domain.WithWeakThreshold(cfg.WeakMatchThreshold)}
	if cfg.MatchTrace {
		matcherOpts = append(matcherOpts, domain.WithTrace(logger))
	}
	transformer := pipeline.NewTransformer(logger, metrics)
	source := csvsource.NewCatalogSource(cfg.CatalogSource, cfg.CatalogFetchTimeout, logger)
	loader := pipeline.NewCatalogLoader(source, transformer, cfg.StationAliases, cfg.MatchCacheSize, logger, metrics, matcherOpts...)

	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.CatalogFetchTimeout)
	err = loader.Load(loadCtx)
	cancelLoad()
	if err != nil {
		logger.Error("initial catalog load failed", "source", cfg.CatalogSource, "error", err)
		os.Exit(1)
	}

	refresh := scheduler.New("catalog-refresh", cfg.CatalogRefreshInterval, cfg.CatalogFetchTimeout, loader.Load, logger)
	if err := refresh.Start(); err != nil {
		logger.Error("catalog refresh scheduler failed", "error", err)
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	snapshots := store.NewSnapshotStore(logger)

	p := pipeline.New(reader, transformer, pipeline.MultiLoader{writer, snapshots}, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, pipeline.AllReady{transformer, p}, snapshots, httpadapter.GridDefaults{
		Power:      cfg.IDWPower,
		Resolution: cfg.GridResolution,
		Bounds:     cfg.GridBounds,
	}, metrics, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	refresh.Stop()
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
