// Package gcs implements a Google Cloud Storage state provider, for
// deployments where runs execute on ephemeral machines and the ledger and
// event store must live in a bucket instead of on local disk.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/bizkazan/eventwire/internal/state"
)

// Store persists state blobs as objects in one GCS bucket.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

// New initializes a GCS client and verifies the bucket is reachable.
// Authentication uses Google's Application Default Credentials.
func New(ctx context.Context, bucket, prefix string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("get gcs bucket %q attributes: %w", bucket, err)
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}, nil
}

// Get downloads the named object. Object absence maps to state.ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	rc, err := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, state.ErrNotFound
		}
		return nil, fmt.Errorf("open gcs object: %w", err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read gcs object: %w", err)
	}
	return data, nil
}

// Put rewrites the named object. GCS object writes are atomic, so a
// crashed run never leaves partial state visible.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	wc := s.client.Bucket(s.bucket).Object(s.objectName(name)).NewWriter(ctx)
	wc.ContentType = "application/json"
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return fmt.Errorf("write gcs object %q: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("finalize gcs object %q: %w", name, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}
