package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/techelons/site/internal/models"
)

// MetadataRepo persists asset metadata records.
type MetadataRepo interface {
	Insert(ctx context.Context, a *models.Asset) error
	Get(ctx context.Context, id string) (*models.Asset, error)
	List(ctx context.Context) ([]*models.Asset, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

// MemoryMetadata keeps asset metadata in a map. Used when no document store
// is configured and in tests.
type MemoryMetadata struct {
	mu    sync.RWMutex
	files map[string]*models.Asset
}

// NewMemoryMetadata creates an empty MemoryMetadata.
func NewMemoryMetadata() *MemoryMetadata {
	return &MemoryMetadata{files: make(map[string]*models.Asset)}
}

func (m *MemoryMetadata) Insert(_ context.Context, a *models.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.files[a.ID]; exists {
		return fmt.Errorf("duplicate asset id: %s", a.ID)
	}
	cp := *a
	m.files[a.ID] = &cp
	return nil
}

func (m *MemoryMetadata) Get(_ context.Context, id string) (*models.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *info
	return &cp, nil
}

func (m *MemoryMetadata) List(_ context.Context) ([]*models.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*models.Asset, 0, len(m.files))
	for _, info := range m.files {
		cp := *info
		list = append(list, &cp)
	}
	SortNewestFirst(list)
	return list, nil
}

func (m *MemoryMetadata) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.files)), nil
}

func (m *MemoryMetadata) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.files, id)
	return nil
}

// SortNewestFirst orders assets by CreatedAt desc, then ID for stability.
func SortNewestFirst(list []*models.Asset) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
