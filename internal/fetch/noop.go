package fetch

import "context"

// NoopFetcher returns empty text for every URL. Used when enrichment is
// disabled: classification then runs from the title alone.
type NoopFetcher struct{}

// Fetch always succeeds with empty text.
func (NoopFetcher) Fetch(context.Context, string) (string, error) {
	return "", nil
}
