// Package scheduler runs the periodic results recalculation.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Enabled  bool
	CronSpec string // standard 5-field spec or a descriptor such as "@every 30s"
}

// Job is one scheduled run. Errors are logged, the schedule keeps going.
type Job func(ctx context.Context) error

type Scheduler struct {
	c       *cron.Cron
	config  Config
	timeout time.Duration
}

func New(cfg Config, job Job) (*Scheduler, error) {
	s := &Scheduler{
		c:       cron.New(),
		config:  cfg,
		timeout: time.Minute,
	}
	_, err := s.c.AddFunc(cfg.CronSpec, func() { s.run(job) })
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	slog.Debug("scheduler tick: recalculating results")
	if err := job(ctx); err != nil {
		slog.Error("scheduled job failed", "error", err)
		return
	}
	slog.Debug("scheduled job done", "elapsed", time.Since(start))
}

// Start is a no-op when the scheduler is disabled.
func (s *Scheduler) Start() {
	if !s.config.Enabled {
		slog.Info("scheduler disabled")
		return
	}
	slog.Info("starting scheduler", "cron", s.config.CronSpec)
	s.c.Start()
}

// Stop waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) Config() Config {
	return s.config
}
