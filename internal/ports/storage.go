package ports

import (
	"context"
	"errors"
	"io"
	"time"
)

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// For localfs and s3 this is the requested key.
	// For gdrive it is the Drive file id, needed to read the object back.
	ObjectKey string
	Size      int64
}

type SignedURLOutput struct {
	URL       string
	ExpiresAt time.Time
}

// StorageProvider holds uploaded photos, audio and storage-hosted videos
// (localfs, gdrive, s3).
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error

	// GetSignedURL returns a time limited URL. Providers without native
	// signing return an error and callers fall back to the API route.
	GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (SignedURLOutput, error)
}

// ErrSignedURLUnsupported is returned by providers that cannot sign URLs.
var ErrSignedURLUnsupported = errors.New("signed urls not supported by provider")
