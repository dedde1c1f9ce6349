package memory

import (
	"context"
	"sync"

	"sanctum-sim/internal/storage"
)

// KVStore is an in-memory implementation of storage.KVStore.
type KVStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewKVStore creates a new in-memory key-value store.
func NewKVStore() *KVStore {
	return &KVStore{
		data: make(map[string][]byte),
	}
}

// Get returns the value stored under key.
func (s *KVStore) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put stores value under key.
func (s *KVStore) Put(_ context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (s *KVStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

var _ storage.KVStore = (*KVStore)(nil)
