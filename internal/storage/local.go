package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalBlobStore implements BlobStore using the local filesystem.
type LocalBlobStore struct {
	uploadDir string
}

// NewLocalBlobStore creates a new LocalBlobStore.
func NewLocalBlobStore(uploadDir string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(filepath.Join(uploadDir, "tmp"), 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &LocalBlobStore{uploadDir: uploadDir}, nil
}

// Put writes the payload to a temp file and renames it into place.
func (s *LocalBlobStore) Put(ctx context.Context, key, _ string, r io.Reader) (int64, error) {
	path, err := s.path(key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tmpPath := filepath.Join(s.uploadDir, "tmp", uuid.New().String())
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("writing file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("moving file into place: %w", err)
	}
	return size, nil
}

// Open opens the payload for reading.
func (s *LocalBlobStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return f, nil
}

// Delete removes a payload from disk.
func (s *LocalBlobStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// path maps a key to its file, rejecting keys that escape the upload directory.
func (s *LocalBlobStore) path(key string) (string, error) {
	if key == "" || key == "tmp" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.uploadDir, key), nil
}
