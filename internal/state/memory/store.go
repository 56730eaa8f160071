// Package memory keeps state blobs in-memory for tests and development.
package memory

import (
	"context"
	"sync"

	"github.com/bizkazan/eventwire/internal/state"
)

// Store holds state blobs in a map.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty in-memory state provider.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns the named blob or state.ErrNotFound.
func (s *Store) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[name]
	if !ok {
		return nil, state.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Put replaces the named blob.
func (s *Store) Put(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = append([]byte(nil), data...)
	return nil
}
