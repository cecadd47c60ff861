package events

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/contract/contracttest"
	"auction-relay/internal/domain"
	"auction-relay/internal/storage"
	"auction-relay/internal/storage/memory"
)

func newTestBackfiller(t *testing.T) (*Backfiller, *contracttest.Node, *memory.EventStore, *memory.CursorStore) {
	node := contracttest.NewNode(t)
	auction := node.Auction()
	events := memory.NewEventStore()
	cursors := memory.NewCursorStore()

	b := NewBackfiller(BackfillOptions{
		Client:       node,
		Decoder:      auction,
		Filter:       auction.LogFilter(),
		Journal:      NewJournal(JournalOptions{Events: events, Bids: memory.NewBidStore(), Logger: testLogger()}),
		Cursors:      cursors,
		SubscriberID: "backfill",
		BlockRange:   3,
		Logger:       testLogger(),
	})
	return b, node, events, cursors
}

func TestBackfiller_BackfillRange(t *testing.T) {
	b, node, events, cursors := newTestBackfiller(t)
	ctx := context.Background()

	node.AddLog(node.BidPlacedLog(2, 0, 1, testBidder, big.NewInt(1)))
	node.AddLog(node.BidPlacedLog(4, 0, 1, testBidder, big.NewInt(2)))
	node.AddLog(node.Log(domain.EventAuctionsCompleted, 8, 0, nil))
	node.AddLog(node.BidPlacedLog(20, 0, 1, testBidder, big.NewInt(3))) // outside range

	result, err := b.BackfillRange(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, result.LogsFetched)
	assert.Equal(t, 3, result.EventsStored)
	assert.Equal(t, 0, result.DuplicatesSkipped)

	latest, err := events.GetLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), latest)

	last, err := cursors.GetCursor(ctx, "backfill")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), last)

	again, err := b.BackfillRange(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, again.EventsStored)
	assert.Equal(t, 3, again.DuplicatesSkipped)
}

func TestBackfiller_InvalidRange(t *testing.T) {
	b, _, _, _ := newTestBackfiller(t)

	_, err := b.BackfillRange(context.Background(), 10, 1)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestBackfiller_ResumeFromCursor(t *testing.T) {
	b, node, events, cursors := newTestBackfiller(t)
	ctx := context.Background()

	node.AddLog(node.BidPlacedLog(3, 0, 1, testBidder, big.NewInt(1)))
	node.AddLog(node.BidPlacedLog(7, 0, 1, testBidder, big.NewInt(2)))
	require.NoError(t, cursors.SetCursor(ctx, "backfill", 5))

	result, err := b.Resume(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), result.FromBlock)
	assert.Equal(t, uint64(7), result.ToBlock)
	assert.Equal(t, 1, result.EventsStored)

	got, err := events.GetByAuctionID(ctx, big.NewInt(1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(7), got[0].BlockNumber)

	upToDate, err := b.Resume(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, upToDate.LogsFetched)
}
