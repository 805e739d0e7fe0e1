package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskPrefix is the route the router serves the upload directory under.
const DiskPrefix = "/uploads"

// Disk keeps media on the local filesystem. The router serves it statically.
type Disk struct {
	root       string
	publicBase string
}

// NewDisk stores files under root. publicBase is the externally visible origin, may be empty.
func NewDisk(root, publicBase string) *Disk {
	return &Disk{root: root, publicBase: strings.TrimRight(publicBase, "/")}
}

func (d *Disk) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(key, "..") || clean == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(d.root, filepath.FromSlash(clean)), nil
}

// EnsureBucket creates the root directory.
func (d *Disk) EnsureBucket(context.Context) error {
	return os.MkdirAll(d.root, 0o755)
}

func (d *Disk) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (d *Disk) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := d.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (d *Disk) Delete(_ context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *Disk) Bucket() string { return d.root }

func (d *Disk) URL(key string) string { return d.publicBase + DiskPrefix + "/" + strings.TrimLeft(key, "/") }

func (d *Disk) Name() string { return "disk" }
