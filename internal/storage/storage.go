// Package storage talks to S3-compatible object storage, where exported workbooks
// are dropped and rendered reports are archived.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo represents metadata for a remote object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStorage captures the S3-compatible operations the console needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	OpenObject(ctx context.Context, key string) (io.ReadCloser, error)
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
}

// Latest returns the most recently modified object, breaking ties by key.
func Latest(objects []ObjectInfo) (ObjectInfo, bool) {
	var best ObjectInfo
	found := false
	for _, o := range objects {
		if !found || o.LastModified.After(best.LastModified) ||
			(o.LastModified.Equal(best.LastModified) && o.Key > best.Key) {
			best = o
			found = true
		}
	}
	return best, found
}
