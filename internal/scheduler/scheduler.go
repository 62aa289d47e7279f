// Package scheduler re-runs the clustering pipeline on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/weatherlab/station-clustering/internal/pipeline"
)

// Runner executes a clustering run.
type Runner interface {
	RunOnce(ctx context.Context, params pipeline.Params) (pipeline.Result, error)
}

// Scheduler periodically re-clusters the dataset with the default parameters.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	params    pipeline.Params
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a Scheduler. An interval of 0 disables scheduling.
func New(runner Runner, params pipeline.Params, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		params:    params,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run fires immediately so the service becomes ready without
// waiting a full interval.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduler disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		defer cancel()

		if _, err := s.runner.RunOnce(ctx, s.params); err != nil {
			s.logger.Error("scheduled clustering run failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
