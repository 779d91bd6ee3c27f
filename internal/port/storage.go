package port

import (
	"context"
	"io"
)

// ObjectInput describes a receipt image to store. Metadata keys are sent as
// object user metadata and must be ASCII.
type ObjectInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
	Metadata    map[string]string
}

// ObjectInfo identifies a stored object.
type ObjectInfo struct {
	Location string
	ETag     string
}

// ObjectStorage holds receipt images. Download of a missing object returns
// domain.ErrImageNotFound.
type ObjectStorage interface {
	Upload(ctx context.Context, input ObjectInput) (*ObjectInfo, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error)
}
