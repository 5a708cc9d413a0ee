// Package publisher defines the interface for a message topic publisher and
// the fan-out broadcast over it.
package publisher

import "context"

// Provider defines the common interface for publishing to the configured
// topic. Implementations: GCP Pub/Sub in production, memory in tests.
type Provider interface {
	// Publish sends a message with the given payload and blocks until the
	// publish settles.
	Publish(ctx context.Context, data []byte) error

	// Close releases publisher resources.
	Close() error
}

// NoOpProvider drops messages; useful for dry runs.
type NoOpProvider struct{}

// Publish for NoOpProvider does nothing and returns nil.
func (n *NoOpProvider) Publish(_ context.Context, _ []byte) error { return nil }

// Close for NoOpProvider does nothing and returns nil.
func (n *NoOpProvider) Close() error { return nil }
