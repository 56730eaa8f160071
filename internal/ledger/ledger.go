// Package ledger tracks URLs that reached a terminal outcome so no run
// ever re-offers them to the annotator.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bizkazan/eventwire/internal/state"
)

// DefaultName is the state blob the ledger persists to.
const DefaultName = "processed_events.json"

// Ledger is an in-memory uniqueness set of canonical URLs backed by a
// state blob. It grows monotonically: entries are only ever added.
type Ledger struct {
	mu       sync.RWMutex
	urls     map[string]struct{}
	provider state.Provider
	name     string
}

// Load reads the persisted ledger. A missing or corrupt blob yields an
// empty ledger rather than failing the run; the next Persist rewrites it.
func Load(ctx context.Context, provider state.Provider, name string) (*Ledger, error) {
	if name == "" {
		name = DefaultName
	}
	l := &Ledger{
		urls:     make(map[string]struct{}),
		provider: provider,
		name:     name,
	}

	data, err := provider.Get(ctx, name)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return l, nil
		}
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		// Corrupt state starts over empty; every terminal decision will be
		// re-derived and re-persisted on this run.
		return l, nil
	}
	for _, u := range urls {
		l.urls[u] = struct{}{}
	}
	return l, nil
}

// Contains reports whether the URL already reached a terminal outcome.
func (l *Ledger) Contains(url string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.urls[url]
	return ok
}

// Add marks the URL terminal. Safe to call repeatedly for the same URL.
func (l *Ledger) Add(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urls[url] = struct{}{}
}

// Len returns the number of tracked URLs.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.urls)
}

// Persist rewrites the full URL set as a sorted JSON array. Called once
// per run after all decisions are finalized; idempotent if repeated.
func (l *Ledger) Persist(ctx context.Context) error {
	l.mu.RLock()
	urls := make([]string, 0, len(l.urls))
	for u := range l.urls {
		urls = append(urls, u)
	}
	l.mu.RUnlock()
	sort.Strings(urls)

	data, err := json.MarshalIndent(urls, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := l.provider.Put(ctx, l.name, data); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}
