package docstore

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/techelons/site/internal/models"
)

// MemoryStore is an in-process Store used by tests and offline tooling.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]models.Document
	finds       map[string]int

	// Err, when set, is returned from every operation.
	Err error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]models.Document),
		finds:       make(map[string]int),
	}
}

// Insert appends a document to a collection.
func (m *MemoryStore) Insert(collection string, doc models.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], doc)
}

// Clear removes every document of a collection.
func (m *MemoryStore) Clear(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, collection)
}

// FindCalls reports how many FindOne calls hit a collection.
func (m *MemoryStore) FindCalls(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.finds[collection]
}

func (m *MemoryStore) FindOne(ctx context.Context, collection string) (models.Document, error) {
	m.mu.Lock()
	m.finds[collection]++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := m.collections[collection]
	if len(docs) == 0 {
		return nil, nil
	}
	return models.Document(Normalize(map[string]any(docs[0])).(map[string]any)), nil
}

func (m *MemoryStore) Collections(ctx context.Context) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) Walk(ctx context.Context, collection string, fn WalkFunc) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.RLock()
	docs := append([]models.Document(nil), m.collections[collection]...)
	m.mu.RUnlock()

	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := models.ContentDocument{
			Collection: collection,
			ID:         IDString(d["_id"]),
			Body:       Normalize(map[string]any(d)),
		}
		if err := fn(doc); err != nil {
			if errors.Is(err, ErrStopWalk) {
				return nil
			}
			return err
		}
	}
	return nil
}
