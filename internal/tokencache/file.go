package tokencache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirPerm  os.FileMode = 0700
	filePerm os.FileMode = 0600
)

// FileBackend stores the blob unprotected in a single owner-only file.
// It is the unconditional last candidate.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Name returns the backend identifier.
func (b *FileBackend) Name() string { return "file" }

// Path returns the artifact location.
func (b *FileBackend) Path() string { return b.path }

// Verify always succeeds; failures surface on Write.
func (b *FileBackend) Verify() bool { return true }

// Read returns the file contents.
func (b *FileBackend) Read() ([]byte, error) {
	// #nosec G304 -- path comes from configuration, not request input
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Write atomically replaces the file, creating the directory on demand.
func (b *FileBackend) Write(data []byte) error {
	return writeFileAtomic(b.path, data)
}

// Delete removes the file.
func (b *FileBackend) Delete() error {
	return removeIfExists(b.path)
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place so readers never see a partial blob.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict temp file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}
	return nil
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
