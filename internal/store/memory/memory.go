package memory

import (
	"context"
	"sync"

	"kasirpos/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
	saves     int
}

func New() *Store {
	return &Store{snapshots: make(map[string][]byte)}
}

func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.snapshots[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(payload), nil
}

func (s *Store) Save(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[key] = clone(payload)
	s.saves++
	return nil
}

// Saves reports how many Save calls succeeded. Tests use it to check that
// mutations persist.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
