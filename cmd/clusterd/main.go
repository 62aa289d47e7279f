// Command clusterd runs the weather station clustering service: a scheduler
// that periodically re-clusters the configured dataset, plus an HTTP API for
// querying runs and triggering them on demand.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/weatherlab/station-clustering/internal/adapter/http"
	kafkaadapter "github.com/weatherlab/station-clustering/internal/adapter/kafka"
	"github.com/weatherlab/station-clustering/internal/config"
	"github.com/weatherlab/station-clustering/internal/dataset"
	"github.com/weatherlab/station-clustering/internal/observability"
	"github.com/weatherlab/station-clustering/internal/pipeline"
	"github.com/weatherlab/station-clustering/internal/scheduler"
	"github.com/weatherlab/station-clustering/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	db, err := store.Open(cfg.SQLitePath)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	var source dataset.Source
	if cfg.DatasetURL != "" {
		source = dataset.URLSource{Fetcher: dataset.NewFetcher(cfg.DatasetURL, cfg.FetchTimeout, logger, metrics)}
		logger.Info("dataset source", "url", cfg.DatasetURL)
	} else {
		source = dataset.FileSource{Path: cfg.DatasetPath, Logger: logger}
		logger.Info("dataset source", "path", cfg.DatasetPath)
	}

	loaders := []pipeline.Loader{db}
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger, metrics)
		loaders = append(loaders, kafkaWriter)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(source, loaders, logger, metrics, clockwork.NewRealClock())
	defaults := pipeline.DefaultParams(cfg)

	sched := scheduler.New(p, defaults, cfg.ScheduleInterval, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, db, defaults, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := sched.Start(); err != nil {
		logger.Error("scheduler start error", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := db.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
