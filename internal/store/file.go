// Package store persists the append-only collection of published events.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/bizkazan/eventwire/internal/events"
	"github.com/bizkazan/eventwire/internal/state"
)

// DefaultName is the state blob the file store persists to.
const DefaultName = "events_db.json"

// FileStore keeps events as a JSON array in a single state blob, rewritten
// whole on every insert. Fine at this scale: a few records per run.
type FileStore struct {
	mu       sync.Mutex
	provider state.Provider
	name     string
}

// NewFile creates a store over the given state provider.
func NewFile(provider state.Provider, name string) *FileStore {
	if name == "" {
		name = DefaultName
	}
	return &FileStore{provider: provider, name: name}
}

// InsertIfAbsent appends the record unless its URL is already present.
// Returns true when the record was newly inserted. Existing records are
// never modified.
func (s *FileStore) InsertIfAbsent(ctx context.Context, rec events.Stored) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	for _, existing := range all {
		if existing.URL == rec.URL {
			return false, nil
		}
	}
	all = append(all, rec)

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshal event store: %w", err)
	}
	if err := s.provider.Put(ctx, s.name, data); err != nil {
		return false, fmt.Errorf("persist event store: %w", err)
	}
	return true, nil
}

// LoadAll returns every stored record in insertion order.
func (s *FileStore) LoadAll(ctx context.Context) ([]events.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *FileStore) load(ctx context.Context) ([]events.Stored, error) {
	data, err := s.provider.Get(ctx, s.name)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load event store: %w", err)
	}
	var all []events.Stored
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode event store: %w", err)
	}
	return all, nil
}
