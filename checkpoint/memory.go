package checkpoint

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps snapshots in a map. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Snapshot
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Snapshot)}
}

func (m *MemoryStore) Save(_ context.Context, key string, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = clone(s)

	return nil
}

func (m *MemoryStore) Load(_ context.Context, key string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.data[key]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}

	return clone(s), nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)

	return nil
}

// List returns the stored keys in order.
func (m *MemoryStore) List(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys, nil
}

func (m *MemoryStore) Close() error { return nil }
