// Package storage persists attachment bytes under storage-assigned
// unique names. The claim core only records metadata; everything that
// touches raw bytes lives behind the BlobStore interface so the disk
// implementation can be swapped without touching the core.
package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore saves uploaded bytes under a unique name and retrieves
// them by that name for download.
type BlobStore interface {
	// Save writes the full content of r under name. The name must
	// have been produced by UniqueName.
	Save(name string, r io.Reader) error
	// Open returns a reader for a previously saved blob. The caller
	// must close it.
	Open(name string) (io.ReadCloser, error)
}

// LocalStore is a BlobStore backed by a single directory on disk.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory when missing and returns a
// store rooted there.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{root: root}, nil
}

// UniqueName assigns a collision-free storage name for an uploaded
// file, keeping the original extension so downloads get a sensible
// content type.
func UniqueName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ext
}

// Save writes the blob to <root>/<name>. The name is sanitized to its
// base component so a crafted name cannot escape the root.
func (s *LocalStore) Save(name string, r io.Reader) error {
	f, err := os.Create(filepath.Join(s.root, filepath.Base(name)))
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Open returns the blob saved under name.
func (s *LocalStore) Open(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.root, filepath.Base(name)))
}
