package storage

import (
	"context"
	"sync"
)

// MemoryBackend keeps the profile in process memory. Used for tests and
// when persistence is disabled.
type MemoryBackend struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryBackend creates an empty backend, optionally seeded with a record
func NewMemoryBackend(seed []byte) *MemoryBackend {
	return &MemoryBackend{data: clone(seed)}
}

func (b *MemoryBackend) Load(ctx context.Context) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return clone(b.data), nil
}

func (b *MemoryBackend) Save(ctx context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = clone(data)
	return nil
}

func clone(data []byte) []byte {
	if data == nil {
		return nil
	}
	return append([]byte(nil), data...)
}
