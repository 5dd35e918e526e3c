package store

import (
	"context"
	"sort"
	"sync"
)

var _ Store = &MemoryStore{}

// MemoryStore is a map-backed Store for tests and ephemeral sessions.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

// Open is a no-op.
func (m *MemoryStore) Open(string) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// Get returns the value under key.
func (m *MemoryStore) Get(_ context.Context, namespace, key string) (string, error) {
	if err := validateNamespace(namespace); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[namespace][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(_ context.Context, namespace, key, value string) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string]string)
		m.data[namespace] = ns
	}
	ns[key] = value
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(_ context.Context, namespace, key string) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[namespace], key)
	return nil
}

// Clear removes every key of namespace.
func (m *MemoryStore) Clear(_ context.Context, namespace string) error {
	if err := validateNamespace(namespace); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, namespace)
	return nil
}

// Keys lists the keys of namespace.
func (m *MemoryStore) Keys(_ context.Context, namespace string) ([]string, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data[namespace]))
	for k := range m.data[namespace] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
