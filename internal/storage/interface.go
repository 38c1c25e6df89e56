package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStorage stages media files where the dubbing provider can fetch them.
type ObjectStorage interface {
	// EnsureBucket creates the bucket if it doesn't exist
	EnsureBucket(ctx context.Context) error

	// Upload uploads an object to storage
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// URL returns a URL the provider can GET the object from, valid for at least expiry.
	// A configured public URL prefix wins over presigning.
	URL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// Delete deletes an object from storage
	Delete(ctx context.Context, key string) error
}
