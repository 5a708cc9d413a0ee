// Package storage defines the interfaces for a blob storage provider.
// This abstraction keeps the pipeline independent of a specific backend
// (Google Cloud Storage in production, in-memory stores in tests).
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Provider defines the common interface for a blob storage provider.
type Provider interface {
	// Save uploads data to the given object path and returns the object URI.
	Save(ctx context.Context, object string, data []byte) (string, error)

	// Load downloads the full contents of the given object path.
	// A missing object yields ErrNotFound.
	Load(ctx context.Context, object string) ([]byte, error)
}

// NoOpProvider discards writes and reports every object as missing. It is
// useful for dry runs where reports are fetched but not persisted.
type NoOpProvider struct{}

// Save for NoOpProvider does nothing and returns a pseudo URI.
func (n *NoOpProvider) Save(_ context.Context, object string, _ []byte) (string, error) {
	return "noop://" + object, nil
}

// Load for NoOpProvider always reports the object as missing.
func (n *NoOpProvider) Load(_ context.Context, _ string) ([]byte, error) {
	return nil, ErrNotFound
}
