package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/techelons/site/internal/models"
)

// ErrNotFound is returned when an asset does not exist.
var ErrNotFound = errors.New("asset not found")

// Store defines the interface for asset storage.
type Store interface {
	Save(ctx context.Context, name, contentType, section string, r io.Reader) (*models.Asset, error)
	Get(ctx context.Context, id string) (*models.Asset, error)
	List(ctx context.Context) ([]*models.Asset, error)
	Count(ctx context.Context) (int64, error)
	Open(ctx context.Context, id string) (*models.Asset, io.ReadCloser, error)
	Delete(ctx context.Context, id string) error
}

// AssetStore implements Store by pairing a metadata repository with a blob backend.
type AssetStore struct {
	meta  MetadataRepo
	blobs BlobStore
	log   *zap.SugaredLogger
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(meta MetadataRepo, blobs BlobStore, log *zap.SugaredLogger) *AssetStore {
	return &AssetStore{meta: meta, blobs: blobs, log: log}
}

// Save stores the payload first, then records its metadata.
func (s *AssetStore) Save(ctx context.Context, name, contentType, section string, r io.Reader) (*models.Asset, error) {
	id := primitive.NewObjectID().Hex()
	filename := uuid.New().String() + strings.ToLower(filepath.Ext(name))

	size, err := s.blobs.Put(ctx, id, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("writing payload: %w", err)
	}

	asset := models.NewAsset(id, filename, name, contentType, size, section)
	asset.BlobKey = id
	if err := s.meta.Insert(ctx, asset); err != nil {
		if delErr := s.blobs.Delete(ctx, id); delErr != nil {
			s.log.Warnw("orphaned payload after metadata failure", "id", id, "error", delErr)
		}
		return nil, fmt.Errorf("writing metadata: %w", err)
	}
	return asset, nil
}

// Get retrieves asset metadata by ID.
func (s *AssetStore) Get(ctx context.Context, id string) (*models.Asset, error) {
	return s.meta.Get(ctx, id)
}

// List returns every asset, newest first.
func (s *AssetStore) List(ctx context.Context) ([]*models.Asset, error) {
	return s.meta.List(ctx)
}

// Count returns the number of stored assets.
func (s *AssetStore) Count(ctx context.Context) (int64, error) {
	return s.meta.Count(ctx)
}

// Open returns the asset metadata and a reader over its payload.
func (s *AssetStore) Open(ctx context.Context, id string) (*models.Asset, io.ReadCloser, error) {
	asset, err := s.meta.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, blobKey(asset))
	if errors.Is(err, ErrBlobNotFound) {
		return nil, nil, fmt.Errorf("%w: payload missing for %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening payload: %w", err)
	}
	return asset, rc, nil
}

// Delete removes the payload, then the metadata. A payload that is already
// gone does not block metadata removal.
func (s *AssetStore) Delete(ctx context.Context, id string) error {
	asset, err := s.meta.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, blobKey(asset)); err != nil && !errors.Is(err, ErrBlobNotFound) {
		return fmt.Errorf("deleting payload: %w", err)
	}
	if err := s.meta.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting metadata: %w", err)
	}
	return nil
}

func blobKey(a *models.Asset) string {
	if a.BlobKey != "" {
		return a.BlobKey
	}
	return a.ID
}
