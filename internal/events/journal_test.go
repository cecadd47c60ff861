package events

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/domain"
	"auction-relay/internal/idhash"
	"auction-relay/internal/storage/memory"
)

func bidEvent(block uint64, index uint, auctionID int64, amount int64) *domain.ContractEvent {
	bidder := testBidder
	tx := common.BigToHash(new(big.Int).SetUint64(block))
	return &domain.ContractEvent{
		EventID:     idhash.EventID(tx, index),
		Kind:        domain.EventBidPlaced,
		AuctionID:   big.NewInt(auctionID),
		Account:     &bidder,
		Amount:      big.NewInt(amount),
		BlockNumber: block,
		TxHash:      tx,
		LogIndex:    index,
	}
}

func newTestJournal() (*Journal, *memory.EventStore, *memory.BidStore) {
	events := memory.NewEventStore()
	bids := memory.NewBidStore()
	j := NewJournal(JournalOptions{Events: events, Bids: bids, BatchSize: 2, Logger: testLogger()})
	return j, events, bids
}

func TestJournal_RecordIsIdempotent(t *testing.T) {
	j, events, bids := newTestJournal()
	ctx := context.Background()

	e := bidEvent(10, 0, 1, 1e16)
	require.NoError(t, j.Record(ctx, e))
	require.NoError(t, j.Record(ctx, e))

	got, err := events.GetByAuctionID(ctx, big.NewInt(1))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	rows, err := bids.GetByAuctionID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "10000000000000000", rows[0].AmountWei)
	assert.InDelta(t, 0.01, rows[0].AmountEth, 1e-12)
}

func TestJournal_RemovedLogMarksEvent(t *testing.T) {
	j, events, _ := newTestJournal()
	ctx := context.Background()

	e := bidEvent(10, 0, 1, 5)
	require.NoError(t, j.Record(ctx, e))

	removed := *e
	removed.Removed = true
	require.NoError(t, j.Record(ctx, &removed))

	got, err := events.GetByAuctionID(ctx, big.NewInt(1))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJournal_RemovedUnknownLogIgnored(t *testing.T) {
	j, _, _ := newTestJournal()

	e := bidEvent(10, 0, 1, 5)
	e.Removed = true
	assert.NoError(t, j.Record(context.Background(), e))
}

func TestJournal_StoreBatchCountsDuplicates(t *testing.T) {
	j, events, bids := newTestJournal()
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, bidEvent(10, 1, 1, 2)))

	batch := []*domain.ContractEvent{
		bidEvent(10, 0, 1, 1),
		bidEvent(10, 1, 1, 2), // already journaled
		bidEvent(11, 0, 1, 3),
		{EventID: "settle", Kind: domain.EventAuctionsCompleted, BlockNumber: 12},
	}
	stored, dupes, errs := j.StoreBatch(ctx, batch)

	assert.Equal(t, 3, stored)
	assert.Equal(t, 1, dupes)
	assert.Equal(t, 0, errs)

	latest, err := events.GetLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), latest)

	stats, err := bids.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.BidCount)
}

func TestBidRowFrom(t *testing.T) {
	row, ok := BidRowFrom(bidEvent(7, 3, 4, 2e15))
	require.True(t, ok)
	assert.Equal(t, uint64(4), row.AuctionID)
	assert.Equal(t, "0x00000000000000000000000000000000000b1dde", row.Bidder)
	assert.Equal(t, uint64(7), row.BlockNumber)

	_, ok = BidRowFrom(&domain.ContractEvent{Kind: domain.EventBidRefunded})
	assert.False(t, ok)

	huge := bidEvent(7, 3, 4, 1)
	huge.AuctionID = new(big.Int).Lsh(big.NewInt(1), 70)
	_, ok = BidRowFrom(huge)
	assert.False(t, ok)
}
