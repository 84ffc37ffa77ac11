package storage

import (
	"context"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// FileStorage defines the interface for the media object store. Program
// audio is read-only from the app's point of view: sessions fetch it through
// short-lived presigned URLs and never write to the bucket.
type FileStorage interface {
	// GeneratePresignedDownloadURL creates a temporary URL that allows GET
	// requests for streaming an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// ObjectExists reports whether an object is present in the bucket.
	// The catalog uses it to detect days whose audio was never uploaded.
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
}
