package usecase

import (
	"context"

	"ClaimsPlatform/internal/ports"
)

// RefreshScheduler wires the interval driver with the filter manager's
// refresh job.
type RefreshScheduler struct {
	driver  ports.Scheduler
	manager *FilterManager
}

// NewRefreshScheduler returns a helper to start/stop the recurring refresh.
func NewRefreshScheduler(driver ports.Scheduler, manager *FilterManager) *RefreshScheduler {
	return &RefreshScheduler{driver: driver, manager: manager}
}

// Start registers the refresh job with the provided scheduler.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.manager == nil {
		return nil
	}

	return s.driver.Start(ctx, s.manager.Job(ctx))
}

// Stop gracefully tears down the underlying scheduler.
func (s *RefreshScheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
