// Package source holds the per-site listing adapters. All site-specific
// markup heuristics live here, behind the events.Source interface; the
// pipeline only ever sees candidate sequences.
package source

import "context"

// HTMLFetcher retrieves raw listing markup. The rendered (chromedp) and
// static (colly) fetchers both satisfy it.
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, url string) ([]byte, error)
}
