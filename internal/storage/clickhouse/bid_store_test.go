package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/domain"
	"auction-relay/internal/storage"
)

func TestBidStore_InsertAndQuery(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBidStore(conn)

	rows := []*domain.BidRow{
		{EventID: "e2", AuctionID: 1, Bidder: "0xa1", AmountWei: "2000000000000000", AmountEth: 0.002, BlockNumber: 11, ObservedAt: 2},
		{EventID: "e1", AuctionID: 1, Bidder: "0xb0", AmountWei: "1000000000000000", AmountEth: 0.001, BlockNumber: 10, ObservedAt: 1},
		{EventID: "e3", AuctionID: 2, Bidder: "0xa1", AmountWei: "1", AmountEth: 0, BlockNumber: 12, ObservedAt: 3},
	}
	require.NoError(t, store.InsertBulk(ctx, rows))

	bids, err := store.GetByAuctionID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, "e1", bids[0].EventID)
	assert.Equal(t, "1000000000000000", bids[0].AmountWei)

	stats, err := store.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.BidCount)
	assert.Equal(t, uint64(2), stats.DistinctBidders)
	assert.InDelta(t, 0.002, stats.MaxAmountEth, 1e-9)
}

func TestBidStore_DuplicateRejected(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBidStore(conn)

	row := &domain.BidRow{EventID: "dup", AuctionID: 1, Bidder: "0xa1", AmountWei: "1"}
	require.NoError(t, store.InsertBulk(ctx, []*domain.BidRow{row}))

	err := store.InsertBulk(ctx, []*domain.BidRow{row})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
