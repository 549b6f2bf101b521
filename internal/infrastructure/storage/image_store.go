// Package storage keeps uploaded images on the local filesystem and
// hands back the public path stored on the owning record.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ImageStore writes uploaded image files under a base directory with
// generated names, so client-supplied filenames never touch the disk.
type ImageStore struct {
	dir string
}

// NewImageStore creates the base directory if needed.
func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &ImageStore{dir: dir}, nil
}

// Dir returns the base directory, for serving files statically.
func (s *ImageStore) Dir() string {
	return s.dir
}

// Save stores the file content under a uuid name keeping the original
// extension, and returns the path to store on the record.
func (s *ImageStore) Save(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !imageExtensions[ext] {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return "uploads/" + name, nil
}

// Remove deletes a previously saved image by its stored path. A missing
// file is not an error.
func (s *ImageStore) Remove(storedPath string) error {
	name := filepath.Base(storedPath)
	if name == "." || name == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}
