package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSBlobStore keeps payloads in a MongoDB GridFS bucket, next to the content.
type GridFSBlobStore struct {
	bucket *gridfs.Bucket
}

// NewGridFSBlobStore opens the named bucket on db.
func NewGridFSBlobStore(db *mongo.Database, name string) (*GridFSBlobStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, fmt.Errorf("opening gridfs bucket %s: %w", name, err)
	}
	return &GridFSBlobStore{bucket: bucket}, nil
}

// Put streams the payload into GridFS using key as the file id.
func (g *GridFSBlobStore) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cr := &countingReader{r: r}
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}})
	if err := g.bucket.UploadFromStreamWithID(key, key, cr, opts); err != nil {
		return 0, fmt.Errorf("gridfs upload: %w", err)
	}
	return cr.n, nil
}

// Open returns a download stream for key.
func (g *GridFSBlobStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	stream, err := g.bucket.OpenDownloadStream(key)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("gridfs open: %w", err)
	}
	return stream, nil
}

// Delete removes the file and its chunks.
func (g *GridFSBlobStore) Delete(ctx context.Context, key string) error {
	err := g.bucket.DeleteContext(ctx, key)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("gridfs delete: %w", err)
	}
	return nil
}
