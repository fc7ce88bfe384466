package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

var ErrObjectNotFound = errors.New("object not found")

// MemoryStore keeps objects in process. Used in development and tests;
// FailRemove and FailUpload inject errors for chosen keys or file names.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	BaseURL string

	FailRemove func(key string) bool
	FailUpload func(key string) bool
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: map[string][]byte{}, BaseURL: baseURL}
}

func (m *MemoryStore) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if m.FailUpload != nil && m.FailUpload(key) {
		return fmt.Errorf("upload %s: injected failure", key)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, key string) error {
	if m.FailRemove != nil && m.FailRemove(key) {
		return fmt.Errorf("remove %s: injected failure", key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) URL(ctx context.Context, key string) (string, error) {
	return joinURL(m.BaseURL, key), nil
}

// Has reports whether key is stored.
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
