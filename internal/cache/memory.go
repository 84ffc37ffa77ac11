package cache

import (
	"sync"

	"alcyxob/mindtrack-app/internal/domain"
)

// MemoryStore is an in-memory Store for tests and throwaway sessions. It
// applies the same ownership rules as the file store.
type MemoryStore struct {
	mu      sync.Mutex
	ownerID string
	record  *domain.UserProgress
}

// NewMemoryStore creates an empty in-memory cache store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Load(ownerID string) (*domain.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record == nil {
		return nil, ErrNoEntry
	}
	if ownerID != "" && s.ownerID != ownerID {
		return nil, ErrNoEntry
	}
	return s.record.Clone(), nil
}

func (s *MemoryStore) Save(p *domain.UserProgress, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ownerID = ownerID
	s.record = p.Clone()
	return nil
}
