// Package memory stores blob content in-memory for tests and development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/perfwatch/pagespeed-pipeline/internal/storage"
)

// BlobStore keeps objects in a map and returns pseudo URIs.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewBlobStore creates an empty in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{data: make(map[string][]byte)}
}

// Save stores a copy of data under the object path.
func (s *BlobStore) Save(_ context.Context, object string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[object] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", object), nil
}

// Load returns a copy of the stored object or storage.ErrNotFound.
func (s *BlobStore) Load(_ context.Context, object string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[object]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Objects returns the stored object paths, for test assertions.
func (s *BlobStore) Objects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.data))
	for p := range s.data {
		paths = append(paths, p)
	}
	return paths
}

// Len reports how many objects have been stored.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
