// Package storage abstracts the S3-compatible object store that holds
// export artifacts. Implementations stream; nothing touches local disk.
package storage

import (
	"context"
	"io"
	"path"
	"time"
)

// ExportPrefix is the key prefix under which export payloads are written.
const ExportPrefix = "exports"

// ExportKey returns the object key of an export payload.
func ExportKey(exportID string) string {
	return path.Join(ExportPrefix, exportID+".json")
}

// PutObjectOptions are optional upload parameters. Size is -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is safe for concurrent use.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL that needs no credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
