// Package history records per-invocation run outcomes. It is a supporting
// store: failures to record are logged by callers, never fatal for the
// invocation.
package history

import (
	"context"
	"time"
)

// Run is one recorded invocation outcome.
type Run struct {
	JobID     string
	SourceID  string
	Strategy  string
	Outcome   string
	StartedAt time.Time
}

// Provider defines the run-history store. This allows a real Postgres store
// in production and a no-op in tests or minimal deployments.
type Provider interface {
	// RecordRun persists one run row.
	RecordRun(ctx context.Context, run Run) error

	// Close releases store resources.
	Close() error
}

// NoOpProvider discards run records.
type NoOpProvider struct{}

// RecordRun for NoOpProvider does nothing and returns nil.
func (n *NoOpProvider) RecordRun(_ context.Context, _ Run) error { return nil }

// Close for NoOpProvider does nothing and returns nil.
func (n *NoOpProvider) Close() error { return nil }
