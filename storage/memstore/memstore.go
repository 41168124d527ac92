// Package memstore provides an in-memory implementation of the storage.KV
// contract for tests and local runs.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/c360/insight/errors"
	"github.com/c360/insight/storage"
)

// Store is a mutex-guarded in-memory key/value store. Values are copied on
// the way in and out so callers cannot alias internal state.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Get retrieves the value stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.data[key]
	if !exists {
		return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "memstore", "Get", key)
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put creates or replaces the value stored under key.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidKey, "memstore", "Put", "key cannot be empty")
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	s.data[key] = stored
	s.mu.Unlock()
	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// List returns all keys with the given prefix, sorted for deterministic
// iteration in tests.
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys, nil
}

var _ storage.KV = (*Store)(nil)
