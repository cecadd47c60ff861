package memory

import (
	"context"
	"errors"
	"testing"

	"auction-relay/internal/domain"
	"auction-relay/internal/storage"
)

func TestBidStore_InsertAndStats(t *testing.T) {
	store := NewBidStore()
	ctx := context.Background()

	rows := []*domain.BidRow{
		{EventID: "b", AuctionID: 1, Bidder: "0xa1", AmountEth: 0.002, BlockNumber: 11},
		{EventID: "a", AuctionID: 1, Bidder: "0xb0", AmountEth: 0.001, BlockNumber: 10},
		{EventID: "c", AuctionID: 1, Bidder: "0xa1", AmountEth: 0.003, BlockNumber: 12},
		{EventID: "d", AuctionID: 2, Bidder: "0xa1", AmountEth: 1.0, BlockNumber: 13},
	}
	if err := store.InsertBulk(ctx, rows); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	bids, err := store.GetByAuctionID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByAuctionID failed: %v", err)
	}
	if len(bids) != 3 || bids[0].EventID != "a" {
		t.Fatalf("Expected 3 bids starting with a, got %d", len(bids))
	}

	stats, err := store.Stats(ctx, 1)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.BidCount != 3 {
		t.Errorf("BidCount: got %d, want 3", stats.BidCount)
	}
	if stats.DistinctBidders != 2 {
		t.Errorf("DistinctBidders: got %d, want 2", stats.DistinctBidders)
	}
	if stats.MaxAmountEth != 0.003 {
		t.Errorf("MaxAmountEth: got %f, want 0.003", stats.MaxAmountEth)
	}
}

func TestBidStore_StatsEmpty(t *testing.T) {
	store := NewBidStore()

	stats, err := store.Stats(context.Background(), 7)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.AuctionID != 7 || stats.BidCount != 0 {
		t.Errorf("Expected empty stats for auction 7, got %+v", stats)
	}
}

func TestBidStore_DuplicateKey(t *testing.T) {
	store := NewBidStore()
	ctx := context.Background()

	row := &domain.BidRow{EventID: "a", AuctionID: 1}
	if err := store.InsertBulk(ctx, []*domain.BidRow{row}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, []*domain.BidRow{row}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}
