package memory

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
	"github.com/custodia-labs/portal-sync/internal/core/ports/driven"
)

// Ensure KVStore implements the interface.
var _ driven.KVStore = (*KVStore)(nil)

// KVStore is an in-memory implementation of driven.KVStore.
// A single mutex makes CompareAndSwap atomic with respect to every other call.
type KVStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewKVStore creates a new in-memory key-value store.
func NewKVStore() *KVStore {
	return &KVStore{
		values: make(map[string][]byte),
	}
}

// Get returns a copy of the value for key.
func (s *KVStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return bytes.Clone(val), nil
}

// Set stores a copy of value under key.
func (s *KVStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = bytes.Clone(value)
	return nil
}

// Delete removes key.
func (s *KVStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// DeleteMany removes every key in keys.
func (s *KVStore) DeleteMany(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

// Keys returns every key starting with prefix.
func (s *KVStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range s.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// CompareAndSwap replaces key's value with newValue if it currently equals oldValue.
func (s *KVStore) CompareAndSwap(_ context.Context, key string, oldValue, newValue []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.values[key]
	if oldValue == nil {
		if exists {
			return false, nil
		}
	} else if !exists || !bytes.Equal(current, oldValue) {
		return false, nil
	}

	s.values[key] = bytes.Clone(newValue)
	return true, nil
}

// Len returns the number of stored keys.
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
