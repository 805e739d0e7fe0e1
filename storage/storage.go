// Package storage puts uploaded media into an object store and hands back public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/deep3/social/config"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
	// URL is the public address of key.
	URL(key string) string
	// Name identifies the backend in upload records.
	Name() string
}

// New builds the configured primary backend. Disk needs no network and is also the fallback.
func New(ctx context.Context, c config.AppConfig) (ObjectStorage, error) {
	switch strings.ToLower(c.Storage.Backend) {
	case "", "disk":
		return NewDisk(c.UploadDir, c.PublicBaseURL), nil
	case "minio":
		return NewMinioClient(c.Storage.Minio)
	case "gcs":
		return NewGCSClient(ctx, c.Storage.GCS)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
