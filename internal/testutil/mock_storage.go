// mock_storage.go - Mock asset storage for handler and coordinator tests
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/techelons/site/internal/models"
	"github.com/techelons/site/internal/storage"
)

// MockStorage implements storage.Store in memory
type MockStorage struct {
	files    map[string]*models.Asset
	fileData map[string][]byte
	mu       sync.RWMutex

	// DeleteErrors fails Delete for the listed IDs
	DeleteErrors map[string]error
	// CountErr, when set, is returned from Count
	CountErr error
	// ListErr, when set, is returned from List
	ListErr error

	deleteCalls int
}

// NewMockStorage creates an empty mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:        make(map[string]*models.Asset),
		fileData:     make(map[string][]byte),
		DeleteErrors: make(map[string]error),
	}
}

func (m *MockStorage) Save(_ context.Context, name, contentType, section string, r io.Reader) (*models.Asset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return m.AddFile(generateTestID(), name, contentType, section, data), nil
}

func (m *MockStorage) Get(_ context.Context, id string) (*models.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	cp := *file
	return &cp, nil
}

func (m *MockStorage) List(_ context.Context) ([]*models.Asset, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]*models.Asset, 0, len(m.files))
	for _, file := range m.files {
		cp := *file
		files = append(files, &cp)
	}
	storage.SortNewestFirst(files)
	return files, nil
}

func (m *MockStorage) Count(_ context.Context) (int64, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.files)), nil
}

func (m *MockStorage) Open(_ context.Context, id string) (*models.Asset, io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	cp := *file
	return &cp, io.NopCloser(bytes.NewReader(m.fileData[id])), nil
}

func (m *MockStorage) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++

	if err := m.DeleteErrors[id]; err != nil {
		return err
	}
	if _, exists := m.files[id]; !exists {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}

	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// Test Helper Methods

// AddFile adds a file directly to the mock
func (m *MockStorage) AddFile(id, name, contentType, section string, data []byte) *models.Asset {
	m.mu.Lock()
	defer m.mu.Unlock()

	file := models.NewAsset(id, id+"_"+name, name, contentType, int64(len(data)), section)
	file.BlobKey = id
	m.files[id] = file
	m.fileData[id] = data
	cp := *file
	return &cp
}

// AddFileAt adds a file with a fixed creation time
func (m *MockStorage) AddFileAt(id, name string, createdAt time.Time) *models.Asset {
	m.AddFile(id, name, "", "", []byte(name))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[id].CreatedAt = createdAt
	cp := *m.files[id]
	return &cp
}

// GetFileData returns the file content
func (m *MockStorage) GetFileData(id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.fileData[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return data, nil
}

// GetFileCount returns the number of stored files
func (m *MockStorage) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// DeleteCalls returns how many times Delete was called
func (m *MockStorage) DeleteCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deleteCalls
}

// generateTestID generates a simple test ID
var testIDCounter int
var testIDMutex sync.Mutex

func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-id-%d", testIDCounter)
}
