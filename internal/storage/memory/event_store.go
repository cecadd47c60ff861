package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"auction-relay/internal/domain"
	"auction-relay/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data []*domain.ContractEvent
	byID map[string]*domain.ContractEvent
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make([]*domain.ContractEvent, 0),
		byID: make(map[string]*domain.ContractEvent),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *EventStore) Insert(_ context.Context, e *domain.ContractEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[e.EventID]; ok {
		return storage.ErrDuplicateKey
	}
	s.put(e)
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.ContractEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]bool, len(events))
	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		if _, ok := s.byID[e.EventID]; ok || batch[e.EventID] {
			return storage.ErrDuplicateKey
		}
		batch[e.EventID] = true
	}

	for _, e := range events {
		s.put(e)
	}
	return nil
}

// put stores a copy of e. Caller holds the write lock.
func (s *EventStore) put(e *domain.ContractEvent) {
	stored := *e
	s.data = append(s.data, &stored)
	s.byID[e.EventID] = &stored
}

// MarkRemoved flags an event reverted by a reorg.
func (s *EventStore) MarkRemoved(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[eventID]
	if !ok {
		return storage.ErrNotFound
	}
	e.Removed = true
	return nil
}

// GetByAddress retrieves events involving account, newest first.
func (s *EventStore) GetByAddress(_ context.Context, account common.Address, limit int) ([]*domain.ContractEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ContractEvent
	for _, e := range s.data {
		if e.Removed || e.Account == nil || *e.Account != account {
			continue
		}
		c := *e
		result = append(result, &c)
	}

	sortEvents(result)
	// Newest first
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetByAuctionID retrieves events for an auction in chain order.
func (s *EventStore) GetByAuctionID(_ context.Context, auctionID *big.Int) ([]*domain.ContractEvent, error) {
	if auctionID == nil {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ContractEvent
	for _, e := range s.data {
		if e.Removed || e.AuctionID == nil || e.AuctionID.Cmp(auctionID) != 0 {
			continue
		}
		c := *e
		result = append(result, &c)
	}

	sortEvents(result)
	return result, nil
}

// GetLatestBlock returns the highest journaled block.
func (s *EventStore) GetLatestBlock(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return 0, storage.ErrNotFound
	}
	var latest uint64
	for _, e := range s.data {
		if e.BlockNumber > latest {
			latest = e.BlockNumber
		}
	}
	return latest, nil
}

// sortEvents sorts by (block_number, log_index) ASC.
func sortEvents(events []*domain.ContractEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})
}

var _ storage.EventStore = (*EventStore)(nil)
