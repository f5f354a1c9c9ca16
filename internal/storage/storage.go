package storage

import "context"

// ObjectStorage captures the single operation export publishing needs
// from an S3-compatible backend.
type ObjectStorage interface {
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}
