// Package osfilesystem implements ports.FileSystem on the local disk.
package osfilesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/user/rawkit/pkg/ports"
)

// FileSystem implements ports.FileSystem using the os package. Writes go
// to a temporary file in the target directory and are renamed into place,
// so a failed export never leaves a truncated image behind.
type FileSystem struct{}

// New creates a new FileSystem.
func New() *FileSystem {
	return &FileSystem{}
}

// ReadFile reads the entire contents of a file.
func (f *FileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile atomically replaces path with data.
func (f *FileSystem) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// MkdirAll creates a directory and all parent directories.
func (f *FileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

// Exists checks if a file or directory exists.
func (f *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Remove deletes a file or empty directory. Removing a missing path is
// not an error.
func (f *FileSystem) Remove(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

var _ ports.FileSystem = (*FileSystem)(nil)
