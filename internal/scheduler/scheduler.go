// Package scheduler runs the refresh job on a cron schedule for daemon mode.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler manages the cron entries. A run still in progress when its next
// tick fires causes that tick to be skipped.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  *slog.Logger
}

// New creates a scheduler whose jobs receive ctx. Specs include seconds.
func New(ctx context.Context) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		ctx: ctx,
		log: slog.Default().With("component", "scheduler"),
	}
}

// Register adds job under name at spec.
func (s *Scheduler) Register(name, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	s.log.Info("task registered", "task", name, "spec", spec)
	return nil
}

// RunNow executes job immediately on the calling goroutine.
func (s *Scheduler) RunNow(name string, job Job) {
	s.run(name, job)
}

func (s *Scheduler) run(name string, job Job) {
	if s.ctx.Err() != nil {
		return
	}
	start := time.Now()
	s.log.Info("running task", "task", name)
	if err := job(s.ctx); err != nil {
		s.log.Error("task failed", "task", name, "err", err)
		return
	}
	s.log.Info("task done", "task", name, "elapsed", time.Since(start).Round(time.Millisecond))
}

// Next returns the next activation time across all entries, or the zero time
// when nothing is registered or the scheduler has not been started.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if e.Next.IsZero() {
			continue
		}
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
