package events

import (
	"context"
	"time"
)

// Source yields raw candidates from one external event-directory site.
// All site-specific markup heuristics stay behind this boundary.
type Source interface {
	Tag() string
	Discover(ctx context.Context) ([]Candidate, error)
}

// Fetcher retrieves the visible text of a page. Implementations must
// tolerate client-side-rendered pages where the text only exists in the
// post-render DOM.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// AnnotateInput is the structured input handed to an Annotator.
type AnnotateInput struct {
	Source string
	Title  string
	URL    string
	Text   string
}

// Annotator classifies an enriched candidate into a Verdict. A failed call
// or an unparseable response returns an error, never an implicit ignore.
type Annotator interface {
	Annotate(ctx context.Context, in AnnotateInput) (Verdict, error)
}

// Publisher delivers final post text to the downstream messaging channel.
type Publisher interface {
	Publish(ctx context.Context, text string) error
}

// Ledger is the persistent set of URLs that reached a terminal outcome
// (posted or explicitly ignored) and must never be reconsidered.
type Ledger interface {
	Contains(url string) bool
	Add(url string)
	Persist(ctx context.Context) error
}

// Store is the append-only collection of published event records.
type Store interface {
	InsertIfAbsent(ctx context.Context, rec Stored) (bool, error)
	LoadAll(ctx context.Context) ([]Stored, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
