package store

import (
	"context"
	"sync"

	"github.com/bizkazan/eventwire/internal/events"
)

// MemoryStore is an in-memory events.Store for tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records []events.Stored
	byURL   map[string]struct{}
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{byURL: make(map[string]struct{})}
}

// InsertIfAbsent appends the record unless its URL is already present.
func (s *MemoryStore) InsertIfAbsent(_ context.Context, rec events.Stored) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byURL[rec.URL]; ok {
		return false, nil
	}
	s.byURL[rec.URL] = struct{}{}
	s.records = append(s.records, rec)
	return true, nil
}

// LoadAll returns a copy of all records in insertion order.
func (s *MemoryStore) LoadAll(_ context.Context) ([]events.Stored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]events.Stored, len(s.records))
	copy(out, s.records)
	return out, nil
}
