package memory

import (
	"context"
	"sort"
	"sync"

	"auction-relay/internal/domain"
	"auction-relay/internal/storage"
)

// BidStore is an in-memory implementation of storage.BidStore.
type BidStore struct {
	mu   sync.RWMutex
	data []*domain.BidRow
	keys map[string]bool
}

// NewBidStore creates a new in-memory bid store.
func NewBidStore() *BidStore {
	return &BidStore{
		data: make([]*domain.BidRow, 0),
		keys: make(map[string]bool),
	}
}

// InsertBulk adds multiple bid rows atomically. Fails entire batch on any duplicate.
func (s *BidStore) InsertBulk(_ context.Context, rows []*domain.BidRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r == nil || r.EventID == "" {
			return storage.ErrInvalidInput
		}
		if s.keys[r.EventID] || batch[r.EventID] {
			return storage.ErrDuplicateKey
		}
		batch[r.EventID] = true
	}

	for _, r := range rows {
		c := *r
		s.data = append(s.data, &c)
		s.keys[r.EventID] = true
	}
	return nil
}

// GetByAuctionID retrieves bids for an auction ordered by (block_number, event_id).
func (s *BidStore) GetByAuctionID(_ context.Context, auctionID uint64) ([]*domain.BidRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BidRow
	for _, r := range s.data {
		if r.AuctionID == auctionID {
			c := *r
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].BlockNumber != result[j].BlockNumber {
			return result[i].BlockNumber < result[j].BlockNumber
		}
		return result[i].EventID < result[j].EventID
	})
	return result, nil
}

// Stats summarizes bids for an auction.
func (s *BidStore) Stats(_ context.Context, auctionID uint64) (*domain.BidStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.BidStats{AuctionID: auctionID}
	bidders := make(map[string]struct{})
	for _, r := range s.data {
		if r.AuctionID != auctionID {
			continue
		}
		stats.BidCount++
		bidders[r.Bidder] = struct{}{}
		if r.AmountEth > stats.MaxAmountEth {
			stats.MaxAmountEth = r.AmountEth
		}
	}
	stats.DistinctBidders = uint64(len(bidders))
	return stats, nil
}

var _ storage.BidStore = (*BidStore)(nil)
