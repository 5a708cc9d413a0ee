// Package memory contains an in-memory publisher implementation for tests.
package memory

import (
	"context"
	"sync"
)

// Publisher stores published payloads for inspection.
type Publisher struct {
	mu       sync.RWMutex
	messages [][]byte
	// PublishErr, when set, is returned by every Publish call.
	PublishErr error
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the payload.
func (p *Publisher) Publish(_ context.Context, data []byte) error {
	if p.PublishErr != nil {
		return p.PublishErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, append([]byte(nil), data...))
	return nil
}

// Close does nothing.
func (p *Publisher) Close() error { return nil }

// Messages returns the recorded payloads.
func (p *Publisher) Messages() [][]byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([][]byte, len(p.messages))
	copy(out, p.messages)
	return out
}
