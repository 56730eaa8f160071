// Package state persists the pipeline's whole-file-rewrite state blobs
// (the processed-URL ledger and the file-backed event store).
package state

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the named blob does not exist yet.
// Callers treat this as "start from empty state", not as a failure.
var ErrNotFound = errors.New("state blob not found")

// Provider reads and rewrites named state blobs as whole objects. There is
// no partial update: every Put replaces the previous content.
type Provider interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
}
