package memory

import (
	"context"
	"sync"

	"auction-relay/internal/storage"
)

// CursorStore is an in-memory implementation of storage.CursorStore.
type CursorStore struct {
	mu      sync.RWMutex
	cursors map[string]uint64
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{cursors: make(map[string]uint64)}
}

// GetCursor returns the last processed block for subscriberID.
func (s *CursorStore) GetCursor(_ context.Context, subscriberID string) (uint64, error) {
	if subscriberID == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	block, ok := s.cursors[subscriberID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return block, nil
}

// SetCursor saves the last processed block for subscriberID.
func (s *CursorStore) SetCursor(_ context.Context, subscriberID string, block uint64) error {
	if subscriberID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[subscriberID] = block
	return nil
}

var _ storage.CursorStore = (*CursorStore)(nil)
