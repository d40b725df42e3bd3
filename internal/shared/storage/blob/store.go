package blob

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored blob as reported by the gateway.
type ObjectInfo struct {
	Path       string
	URL        string
	Size       int64
	UploadedAt time.Time
}

// Store defines the contract for the durable blob gateway. The listing is the
// authoritative record: everything the service serves must be rebuildable
// from List alone.
type Store interface {
	Put(ctx context.Context, path string, contentType string, r io.Reader) (ObjectInfo, error)
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
