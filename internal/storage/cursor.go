package storage

import "context"

// CursorStore persists the last processed block per subscriber.
// This lets the poller and backfill resume after restarts without gaps.
type CursorStore interface {
	// GetCursor returns the last processed block for subscriberID.
	// Returns ErrNotFound if no cursor has been saved yet.
	GetCursor(ctx context.Context, subscriberID string) (uint64, error)

	// SetCursor saves the last processed block for subscriberID.
	SetCursor(ctx context.Context, subscriberID string, block uint64) error
}
