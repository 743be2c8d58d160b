// Package state persists conversation-scoped and user-scoped documents between turns.
package state

import (
	"context"
	"sync"
)

// Storage is a key/document store. Read omits keys that do not exist.
type Storage interface {
	Read(ctx context.Context, keys ...string) (map[string][]byte, error)
	Write(ctx context.Context, changes map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
}

// MemoryStorage keeps documents in process memory. State is lost on restart.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Read(_ context.Context, keys ...string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			cp := make([]byte, len(v))
			copy(cp, v)
			out[k] = cp
		}
	}
	return out, nil
}

func (m *MemoryStorage) Write(_ context.Context, changes map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range changes {
		cp := make([]byte, len(v))
		copy(cp, v)
		m.data[k] = cp
	}
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Ping always succeeds.
func (m *MemoryStorage) Ping(context.Context) error { return nil }
