package usecase

import (
	"context"
	"errors"
	"time"

	"correspondent/internal/ports"
)

// Scheduler wires the interval driver with the report orchestrator.
type Scheduler struct {
	driver       ports.Scheduler
	orchestrator *Orchestrator
}

// NewScheduler returns a helper to start/stop recurring report runs.
func NewScheduler(driver ports.Scheduler, orchestrator *Orchestrator) *Scheduler {
	return &Scheduler{driver: driver, orchestrator: orchestrator}
}

// Start registers the orchestrator with the provided driver. A scheduled
// trigger that collides with a manual run in progress is skipped quietly.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.orchestrator == nil {
		return nil
	}

	job := func(time.Time) {
		if _, err := s.orchestrator.RunReport(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
			s.orchestrator.logger.Error("scheduled report run failed", "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
