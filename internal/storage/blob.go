package storage

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound is returned when a payload key does not exist in the backend.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is the byte-storage abstraction behind AssetStore.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
