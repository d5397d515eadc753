package storage

import (
	"context"
)

// PutOptions describes a single object write.
type PutOptions struct {
	Bucket      string
	Key         string
	ContentType string
}

// Service persists blobs to remote object storage.
type Service interface {
	// PutObject stores body and returns its s3:// location.
	PutObject(ctx context.Context, body []byte, opts PutOptions) (string, error)
}
