package postgres

import (
	"context"
	"fmt"

	"auction-relay/internal/storage"
)

// CursorStore is a PostgreSQL implementation of storage.CursorStore.
// One row per subscriber in event_cursors.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new PostgreSQL cursor store.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

var _ storage.CursorStore = (*CursorStore)(nil)

// GetCursor returns the last processed block for subscriberID.
func (s *CursorStore) GetCursor(ctx context.Context, subscriberID string) (uint64, error) {
	if subscriberID == "" {
		return 0, storage.ErrInvalidInput
	}

	var block int64
	err := s.pool.QueryRow(ctx, `
		SELECT last_block
		FROM event_cursors
		WHERE subscriber_id = $1
	`, subscriberID).Scan(&block)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get cursor: %w", err)
	}
	return uint64(block), nil
}

// SetCursor saves the last processed block for subscriberID.
// Uses upsert to handle initial insert and subsequent updates.
func (s *CursorStore) SetCursor(ctx context.Context, subscriberID string, block uint64) error {
	if subscriberID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO event_cursors (subscriber_id, last_block, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (subscriber_id) DO UPDATE
		SET last_block = EXCLUDED.last_block,
		    updated_at = NOW()
	`, subscriberID, int64(block))
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
