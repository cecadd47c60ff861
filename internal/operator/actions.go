package operator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"auction-relay/internal/contract"
	"auction-relay/internal/phase"
)

// BidCheck is the result of pre-validating a bid against cached state.
// The contract remains the authority; a failed check only warns.
type BidCheck struct {
	Phase  phase.Phase
	MinBid *big.Int
	OK     bool
	Reason string
}

// CheckBid projects the current snapshot and compares amount with the
// minimum bid. Without a Snapshotter the check passes.
func (o *Operator) CheckBid(ctx context.Context, amount *big.Int) (*BidCheck, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if o.snapshots == nil {
		return &BidCheck{OK: true}, nil
	}

	snap, err := o.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read auction state: %w", err)
	}
	viewer := o.from
	proj := phase.Project(phase.Input{Snapshot: snap, Viewer: &viewer}, o.now().Unix(), o.rules)

	check := &BidCheck{Phase: proj.Phase, MinBid: proj.MinBid, OK: true}
	switch {
	case proj.Phase != phase.Live:
		check.OK = false
		check.Reason = fmt.Sprintf("auction is %s, not Live", proj.Phase)
	case snap.Current != nil && !phase.ValidateBid(amount, snap.Current.HighestBid, o.rules):
		check.OK = false
		check.Reason = fmt.Sprintf("bid %s wei is below the minimum %s wei", amount, proj.MinBid)
	}
	return check, nil
}

// PlaceBid sends placeBid with amount wei attached. When the pre-check
// fails the bid is not sent unless force is set.
func (o *Operator) PlaceBid(ctx context.Context, amount *big.Int, force bool) (*Tx, *BidCheck, error) {
	check, err := o.CheckBid(ctx, amount)
	if err != nil {
		return nil, nil, err
	}
	if !check.OK {
		if !force {
			return nil, check, fmt.Errorf("bid rejected: %s", check.Reason)
		}
		o.logger.Printf("Sending bid despite failed check: %s", check.Reason)
	}

	tx, err := o.send(ctx, contract.MethodPlaceBid, amount)
	return tx, check, err
}

// SettleAuction settles the ended auction.
func (o *Operator) SettleAuction(ctx context.Context) (*Tx, error) {
	return o.send(ctx, contract.MethodSettleAuction, nil)
}

// StartGenesisAuction starts the first auction. Owner only.
func (o *Operator) StartGenesisAuction(ctx context.Context) (*Tx, error) {
	return o.send(ctx, contract.MethodStartGenesisAuction, nil)
}

// BeginAuctionAfterRest starts the next auction once the rest period is over.
func (o *Operator) BeginAuctionAfterRest(ctx context.Context) (*Tx, error) {
	return o.send(ctx, contract.MethodBeginAuctionAfterRest, nil)
}

// UpdateAuctionDuration sets the auction length in minutes. Owner only.
func (o *Operator) UpdateAuctionDuration(ctx context.Context, minutes int64) (*Tx, error) {
	seconds, err := AuctionDurationSeconds(minutes)
	if err != nil {
		return nil, err
	}
	return o.send(ctx, contract.MethodUpdateAuctionDuration, nil, seconds)
}

// UpdateRestDuration sets the rest length in hours. Owner only.
func (o *Operator) UpdateRestDuration(ctx context.Context, hours int64) (*Tx, error) {
	return o.send(ctx, contract.MethodUpdateRestDuration, nil, RestDurationSeconds(hours))
}

// UpdatePayoutAddress sets where winning bids are paid. Owner only.
func (o *Operator) UpdatePayoutAddress(ctx context.Context, payout common.Address) (*Tx, error) {
	if payout == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	return o.send(ctx, contract.MethodUpdatePayoutAddress, nil, payout)
}

// AuctionDurationSeconds converts minutes to the contract's seconds.
func AuctionDurationSeconds(minutes int64) (*big.Int, error) {
	if minutes <= 0 {
		return nil, ErrInvalidDuration
	}
	return big.NewInt(minutes * 60), nil
}

// RestDurationSeconds converts hours to seconds. Anything under one hour
// becomes one hour.
func RestDurationSeconds(hours int64) *big.Int {
	if hours < 1 {
		hours = 1
	}
	return big.NewInt(hours * 3600)
}
