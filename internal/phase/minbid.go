package phase

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// BidIncrementEth is the fixed increment over the highest bid.
var BidIncrementEth = decimal.RequireFromString("0.001")

// BidIncrement is BidIncrementEth in wei.
var BidIncrement = BidIncrementEth.Shift(18).BigInt()

// DefaultFirstBidFloor applies when PositiveFirstBid is set without a floor.
var DefaultFirstBidFloor = big.NewInt(1)

// Rules selects the deployed contract variant's bidding rules.
type Rules struct {
	// PositiveFirstBid is set for deployments that reject a zero first bid.
	PositiveFirstBid bool
	// FirstBidFloor is the minimum first bid in wei when PositiveFirstBid is set.
	FirstBidFloor *big.Int
}

// MinimumBid returns the minimum acceptable next bid in wei.
// A zero or nil highest bid means no bids yet.
func MinimumBid(highest *big.Int, rules Rules) *big.Int {
	if highest != nil && highest.Sign() > 0 {
		return new(big.Int).Add(highest, BidIncrement)
	}
	if !rules.PositiveFirstBid {
		return new(big.Int)
	}
	if rules.FirstBidFloor != nil && rules.FirstBidFloor.Sign() > 0 {
		return new(big.Int).Set(rules.FirstBidFloor)
	}
	return new(big.Int).Set(DefaultFirstBidFloor)
}

// ValidateBid reports whether amount meets the minimum for highest.
func ValidateBid(amount, highest *big.Int, rules Rules) bool {
	if amount == nil || amount.Sign() < 0 {
		return false
	}
	return amount.Cmp(MinimumBid(highest, rules)) >= 0
}
