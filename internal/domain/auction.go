package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AuctionRecord is one entry of the contract's auctions(id) mapping.
type AuctionRecord struct {
	AuctionID     *big.Int
	TokenID       *big.Int
	StartTime     *big.Int // unix seconds
	EndTime       *big.Int // unix seconds
	HighestBidder common.Address
	HighestBid    *big.Int // wei; zero means no bids yet
	Settled       bool
	Exists        bool
}

// HasBids reports whether a non-zero bid has been placed.
func (a *AuctionRecord) HasBids() bool {
	return a.HighestBid != nil && a.HighestBid.Sign() > 0
}

// BidRecord is one element of getAuctionBids(id). Append-only on-chain.
type BidRecord struct {
	Bidder    common.Address
	Amount    *big.Int // wei
	Timestamp *big.Int // unix seconds
}

// AuctionView is the flattened getCurrentAuctionView result.
type AuctionView struct {
	AuctionRecord
	IsAuctionActive    bool
	HasStarted         bool
	HasEnded           bool
	CanSettleNow       bool
	NextTokenURISeeded bool
	TotalBids          *big.Int
}

// AuctionSnapshot is a time-stamped, read-only copy of the contract state
// that drives phase projection. Nil pointer fields mean the read is missing.
type AuctionSnapshot struct {
	Current *AuctionRecord

	AuctionActive                *bool
	GenesisStarted               *bool
	HasStarted                   *bool
	HasEnded                     *bool
	CanSettle                    *bool
	NextTokenURISeeded           *bool
	TotalBids                    *big.Int
	NextAuctionEarliestStartTime *big.Int
	Owner                        *common.Address

	FetchedAt int64 // unix seconds
}

// UserNFT is an NFT won and settled by a user.
type UserNFT struct {
	TokenID    *big.Int
	AuctionID  *big.Int
	WinningBid *big.Int
	Name       string
	Image      string
}
