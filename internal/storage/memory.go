package storage

import (
	"context"
	"sync"
)

// MemoryBackend is the in-process storage variant. It exists for the
// environments where no privileged backend is reachable and for tests.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string]memoryEntry
}

type memoryEntry struct {
	data     []byte
	revision uint64
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]memoryEntry)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.data[key]
	if !ok {
		return nil, 0, nil
	}
	return append([]byte(nil), entry.data...), entry.revision, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, data []byte, expectRevision uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.data[key]
	if entry.revision != expectRevision {
		return entry.revision, ErrConflict
	}
	entry.data = append([]byte(nil), data...)
	entry.revision++
	m.data[key] = entry
	return entry.revision, nil
}
