package track

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// PassRunner is what the scheduler drives; satisfied by *Reconciler.
type PassRunner interface {
	RunPass(ctx context.Context) (Report, error)
}

// Scheduler fires reconciliation passes on a fixed cadence with single-flight
// semantics: a tick that arrives while a pass is still running is skipped
// outright, never queued or run concurrently. Overlapping passes would risk
// duplicate notifications and interleaved per-user writes.
type Scheduler struct {
	runner   PassRunner
	interval time.Duration
	logger   *slog.Logger
	running  atomic.Bool
	skipped  atomic.Int64
}

// NewScheduler builds a scheduler with the given pass interval.
func NewScheduler(runner PassRunner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Skipped reports how many ticks were dropped because a pass was in flight.
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }

// Run blocks until ctx is cancelled, triggering a pass every interval. The
// first pass fires after one full interval, matching the original cadence.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("tracker scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("tracker scheduler stopped")
			return
		case <-ticker.C:
			// Async so a long pass cannot back up the ticker; the CAS in
			// Trigger is what guarantees no two passes overlap.
			go s.Trigger(ctx)
		}
	}
}

// Trigger starts a pass unless one is already in flight, in which case the
// trigger is dropped. The pass runs on the calling goroutine.
func (s *Scheduler) Trigger(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("skipping reconciliation pass, previous pass still running")
		return
	}
	defer s.running.Store(false)

	if _, err := s.runner.RunPass(ctx); err != nil {
		s.logger.Error("reconciliation pass finished with errors", "error", err)
	}
}
