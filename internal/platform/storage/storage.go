// Package storage provides object storage for prescription attachments.
// It defines the ObjectStore interface, a Google Cloud Storage backed
// implementation, and an in-memory implementation suitable for testing
// and development.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrObjectNotFound      = errors.New("object not found")
	ErrBucketNotConfigured = errors.New("storage bucket not configured")
)

// ObjectStore defines the contract for attachment storage backends.
type ObjectStore interface {
	// Put stores content under the given key, overwriting any existing
	// object.
	Put(ctx context.Context, key string, contentType string, content []byte) error

	// Get returns the raw content stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object stored under key. Deleting a missing
	// key returns ErrObjectNotFound.
	Delete(ctx context.Context, key string) error

	// SignedURL returns a time-limited download URL for the object.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
