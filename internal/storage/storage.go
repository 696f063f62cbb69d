package storage

import (
	"context"
	"errors"
	"time"
)

// DefaultPresignedURLExpiry applies when a caller passes a non-positive expiry.
const DefaultPresignedURLExpiry = 15 * time.Minute

// ErrInvalidObjectKey is returned for empty or absolute object keys.
var ErrInvalidObjectKey = errors.New("invalid object key")

// FileStorage hands out short-lived URLs so document bytes never pass through
// the API server. The server only keeps metadata.
type FileStorage interface {
	// GeneratePresignedUploadURL returns a URL accepting a single PUT with the
	// given Content-Type.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

func validateKey(objectKey string) error {
	if objectKey == "" || objectKey[0] == '/' {
		return ErrInvalidObjectKey
	}
	return nil
}

func expiryOrDefault(expires time.Duration) time.Duration {
	if expires <= 0 {
		return DefaultPresignedURLExpiry
	}
	return expires
}
