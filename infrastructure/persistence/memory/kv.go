// Package memory provides an in-memory KeyValue store used in tests and
// as the default store when no data directory is configured.
package memory

import (
	"sync"

	"bookgraph/infrastructure/persistence/abstractions"
)

// KV is a mutex-guarded map implementation of abstractions.KeyValue.
type KV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewKV creates an empty in-memory store.
func NewKV() *KV {
	return &KV{data: make(map[string]string)}
}

var _ abstractions.KeyValue = (*KV)(nil)

func (s *KV) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *KV) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *KV) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *KV) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}
