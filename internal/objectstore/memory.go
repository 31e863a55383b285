package objectstore

import (
	"context"
	"strings"
	"sync"
)

// Memory is the in-memory reference backend. It exists for tests and for
// local development without cloud credentials, and it is the silent fallback
// when the backend factory is missing configuration. Nothing persists across
// process restarts.
type Memory struct {
	mu    sync.RWMutex
	store map[string][]byte
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{store: make(map[string][]byte)}
}

// Put stores a copy of body under key.
func (m *Memory) Put(_ context.Context, key string, body []byte, _ string) error {
	buf := make([]byte, len(body))
	copy(buf, body)

	m.mu.Lock()
	m.store[key] = buf
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the stored bytes, or (nil, false, nil) when absent.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	stored, ok := m.store[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	out := make([]byte, len(stored))
	copy(out, stored)
	return out, true, nil
}

// Delete removes key; deleting an absent key is a no-op.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.store, key)
	m.mu.Unlock()
	return nil
}

// List returns all live keys starting with prefix, in unspecified order.
func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.store))
	for k := range m.store {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Len returns the number of stored objects. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
