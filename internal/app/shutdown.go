package app

import (
	"context"
	"errors"
	"time"
)

// ShutdownManager coordinates graceful shutdown of the App's components.
// Each step shares one drain deadline.
type ShutdownManager struct {
	// DrainTimeout bounds the whole shutdown.
	DrainTimeout time.Duration

	// StopIntake stops the realtime channel and the metrics listener.
	StopIntake func(ctx context.Context) error

	// StopPoller stops the stats poller.
	StopPoller func()

	// Cleanup releases storage and anything else left.
	Cleanup func() error
}

// NewShutdownManager creates a ShutdownManager with a 5-second drain timeout.
func NewShutdownManager() *ShutdownManager {
	return &ShutdownManager{
		DrainTimeout: 5 * time.Second,
	}
}

// Shutdown runs the steps in order:
// 1. Stop intake (channel disconnect, metrics listener) within DrainTimeout
// 2. Stop the poller
// 3. Run cleanup
//
// Every step runs even if an earlier one fails; the errors are joined.
func (sm *ShutdownManager) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), sm.DrainTimeout)
	defer cancel()

	var errs []error
	if sm.StopIntake != nil {
		errs = append(errs, sm.StopIntake(ctx))
	}
	if sm.StopPoller != nil {
		sm.StopPoller()
	}
	if sm.Cleanup != nil {
		errs = append(errs, sm.Cleanup())
	}
	return errors.Join(errs...)
}
