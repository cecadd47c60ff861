package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind names a watched contract event.
type EventKind string

// Watched contract events.
const (
	EventBidPlaced              EventKind = "BidPlaced"
	EventBidRefunded            EventKind = "BidRefunded"
	EventAuctionSettled         EventKind = "AuctionSettled"
	EventAuctionStarted         EventKind = "AuctionStarted"
	EventRestScheduled          EventKind = "RestScheduled"
	EventAuctionsCompleted      EventKind = "AuctionsCompleted"
	EventAuctionDurationUpdated EventKind = "AuctionDurationUpdated"
	EventRestDurationUpdated    EventKind = "RestDurationUpdated"
)

// AllEventKinds lists every watched event in a stable order.
var AllEventKinds = []EventKind{
	EventBidPlaced,
	EventBidRefunded,
	EventAuctionSettled,
	EventAuctionStarted,
	EventRestScheduled,
	EventAuctionsCompleted,
	EventAuctionDurationUpdated,
	EventRestDurationUpdated,
}

// ContractEvent is a decoded contract log.
// Corresponds to the contract_events table in PostgreSQL.
// Only the fields carried by Kind are set.
type ContractEvent struct {
	EventID string // sha256(txHash|logIndex), hex
	Kind    EventKind

	AuctionID            *big.Int
	TokenID              *big.Int
	Account              *common.Address // bidder for bid events, winner for AuctionSettled
	Amount               *big.Int        // wei
	EndTime              *big.Int
	NextAuctionStartTime *big.Int
	NewDuration          *big.Int

	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
	Removed     bool  // log was reverted by a reorg
	ObservedAt  int64 // unix ms when the relay saw the log
}

// BidRow is a BidPlaced event flattened for analytics.
// Corresponds to bid_events table in ClickHouse.
type BidRow struct {
	EventID     string
	AuctionID   uint64
	Bidder      string // lowercase hex
	AmountWei   string // decimal string
	AmountEth   float64
	BlockNumber uint64
	ObservedAt  int64 // unix ms
}

// BidStats summarizes bids for one auction.
type BidStats struct {
	AuctionID       uint64
	BidCount        uint64
	DistinctBidders uint64
	MaxAmountEth    float64
}
