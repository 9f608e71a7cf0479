// Package memory is an in-process storage.Store, used by tests and the
// memory backend.
package memory

import (
	"context"
	"sync"

	"moneyplanner/internal/storage"
)

type Store struct {
	mu    sync.RWMutex
	doc   []byte
	saves int
}

func New() *Store { return &Store{} }

func (s *Store) Store(_ context.Context, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = append([]byte(nil), doc...)
	s.saves++
	return nil
}

func (s *Store) Load(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), s.doc...), nil
}

// Saves reports how many times Store has been called.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
