package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/storage"
)

func TestCursorStore_SetAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCursorStore(pool)

	_, err := store.GetCursor(ctx, "poller")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.SetCursor(ctx, "poller", 100))
	require.NoError(t, store.SetCursor(ctx, "poller", 150))
	require.NoError(t, store.SetCursor(ctx, "backfill", 7))

	block, err := store.GetCursor(ctx, "poller")
	require.NoError(t, err)
	assert.Equal(t, uint64(150), block)

	block, err = store.GetCursor(ctx, "backfill")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), block)
}
