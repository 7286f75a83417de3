// Package scheduler runs periodic maintenance jobs such as station catalog
// refreshes.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is one scheduled unit of work. The context is canceled on Stop or when
// the job's timeout elapses.
type Job func(ctx context.Context) error

// Scheduler runs a single job at a fixed interval. Runs never overlap.
type Scheduler struct {
	scheduler *gocron.Scheduler
	name      string
	interval  time.Duration
	timeout   time.Duration
	job       Job
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler for job. timeout bounds each run; zero means the run
// is bounded only by Stop.
func New(name string, interval, timeout time.Duration, job Job, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		name:      name,
		interval:  interval,
		timeout:   timeout,
		job:       job,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the job and starts the underlying scheduler. The first run
// happens one interval after Start.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}
	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(s.run)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "job", s.name, "interval", s.interval)
	return nil
}

// Stop cancels a running job and stops future runs.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}

func (s *Scheduler) run() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled job failed", "job", s.name, "error", err)
		return
	}
	s.logger.Debug("scheduled job completed", "job", s.name, "duration", time.Since(start))
}
