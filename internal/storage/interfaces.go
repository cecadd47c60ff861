package storage

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"auction-relay/internal/domain"
)

// EventStore provides access to contract_events storage.
// The journal is an archive of observed logs, not a source of auction state.
type EventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.ContractEvent) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.ContractEvent) error

	// MarkRemoved flags an event reverted by a reorg. Returns ErrNotFound if not exists.
	MarkRemoved(ctx context.Context, eventID string) error

	// GetByAddress retrieves non-removed events whose bidder or winner is account,
	// newest first. limit <= 0 means no limit.
	GetByAddress(ctx context.Context, account common.Address, limit int) ([]*domain.ContractEvent, error)

	// GetByAuctionID retrieves non-removed events for an auction, ordered by (block_number, log_index) ASC.
	GetByAuctionID(ctx context.Context, auctionID *big.Int) ([]*domain.ContractEvent, error)

	// GetLatestBlock returns the highest journaled block. Returns ErrNotFound if empty.
	GetLatestBlock(ctx context.Context) (uint64, error)
}

// BidStore provides access to bid_events analytics storage.
type BidStore interface {
	// InsertBulk adds multiple bid rows. Fails entire batch on any duplicate event_id.
	InsertBulk(ctx context.Context, rows []*domain.BidRow) error

	// GetByAuctionID retrieves bids for an auction, ordered by (block_number, event_id) ASC.
	GetByAuctionID(ctx context.Context, auctionID uint64) ([]*domain.BidRow, error)

	// Stats summarizes bids for an auction. Zero counts when no bids exist.
	Stats(ctx context.Context, auctionID uint64) (*domain.BidStats, error)
}
