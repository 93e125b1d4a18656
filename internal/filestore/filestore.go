// Package filestore stores uploaded image blobs. Durable blob storage is an
// external collaborator, the disk implementation here is the minimal local
// stand-in.
package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store saves a blob and returns its public path.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Disk stores blobs in a local directory under random names, keeping the
// original extension.
type Disk struct {
	dir     string
	baseURL string
}

// NewDisk creates new instance of Disk.
func NewDisk(dir, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}

	return &Disk{dir: dir, baseURL: baseURL}, nil
}

// Save writes the blob to disk and returns its public path.
func (d *Disk) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	name := uuid.NewString() + filepath.Ext(filename)

	f, err := os.Create(filepath.Join(d.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return d.baseURL + "/" + name, nil
}
