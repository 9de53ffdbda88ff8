package repository

import (
	"context"
	"sync"

	"github.com/iliyamo/match-session-planner/internal/model"
)

// MemoryStore keeps the snapshot in process memory.  It is used by tests
// and by STORE_DRIVER=memory for throwaway instances.
type MemoryStore struct {
	mu   sync.RWMutex
	snap model.Snapshot
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snap: normalize(model.Snapshot{})}
}

// LoadAll returns a copy of the stored snapshot.
func (s *MemoryStore) LoadAll(ctx context.Context) (model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone(), nil
}

// SaveAll stores a copy of snap, replacing the previous one.
func (s *MemoryStore) SaveAll(ctx context.Context, snap model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = normalize(snap.Clone())
	return nil
}
