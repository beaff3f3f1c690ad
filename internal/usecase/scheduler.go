package usecase

import (
	"context"
	"log/slog"
	"time"

	"Poligraph/internal/ports"
)

// Scheduler wires the interval driver with the reconciliation sweep.
type Scheduler struct {
	driver     ports.Scheduler
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring sweeps.
func NewScheduler(driver ports.Scheduler, reconciler *Reconciler, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, reconciler: reconciler, logger: logger}
}

// Start registers the sweep with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.reconciler == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.reconciler.Sweep(ctx); err != nil && s.logger != nil {
			s.logger.Error("sweep failed", "trigger", trigger.Format(time.RFC3339), "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
