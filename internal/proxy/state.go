package proxy

import (
	"context"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"auction-relay/internal/domain"
	"auction-relay/internal/refresh"
)

// partialReadFailure is the error copy of a document with failed optional reads.
const partialReadFailure = "partial read failure"

// AuctionState returns the cached auction-state document, refetching when stale.
func (p *Proxy) AuctionState(ctx context.Context) (*AuctionState, error) {
	v, err := p.cache.Get(ctx, refresh.Key(EndpointAuctionState), func(ctx context.Context) (interface{}, error) {
		return p.fetchAuctionState(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*AuctionState), nil
}

func (p *Proxy) fetchAuctionState(ctx context.Context) (*AuctionState, error) {
	var (
		active, genesis                      bool
		currentID                            *big.Int
		current                              *domain.AuctionRecord
		canSettle, canClaim                  bool
		sinceRest, nextStart, duration, rest *big.Int
		payout, owner                        common.Address
		view                                 *domain.AuctionView
	)

	r := newReads(ctx)
	r.required("auctionActive", func(ctx context.Context) (err error) {
		active, err = p.auction.AuctionActive(ctx)
		return err
	})
	r.required("currentAuctionId", func(ctx context.Context) (err error) {
		currentID, err = p.auction.CurrentAuctionID(ctx)
		return err
	})
	r.required("getCurrentAuction", func(ctx context.Context) (err error) {
		current, err = p.auction.GetCurrentAuction(ctx)
		return err
	})
	r.required("genesisStarted", func(ctx context.Context) (err error) {
		genesis, err = p.auction.GenesisStarted(ctx)
		return err
	})
	r.optional("canSettleAuction", func(ctx context.Context) (err error) {
		canSettle, err = p.auction.CanSettleAuction(ctx)
		return err
	})
	r.optional("canClaimNFT", func(ctx context.Context) (err error) {
		canClaim, err = p.auction.CanClaimNFT(ctx)
		return err
	})
	r.optional("auctionsSinceLastRest", func(ctx context.Context) (err error) {
		sinceRest, err = p.auction.AuctionsSinceLastRest(ctx)
		return err
	})
	r.optional("nextAuctionEarliestStartTime", func(ctx context.Context) (err error) {
		nextStart, err = p.auction.NextAuctionEarliestStartTime(ctx)
		return err
	})
	r.optional("auctionDuration", func(ctx context.Context) (err error) {
		duration, err = p.auction.AuctionDuration(ctx)
		return err
	})
	r.optional("restDuration", func(ctx context.Context) (err error) {
		rest, err = p.auction.RestDuration(ctx)
		return err
	})
	r.optional("payoutAddress", func(ctx context.Context) (err error) {
		payout, err = p.auction.PayoutAddress(ctx)
		return err
	})
	r.optional("owner", func(ctx context.Context) (err error) {
		owner, err = p.auction.Owner(ctx)
		return err
	})
	r.optional("getCurrentAuctionView", func(ctx context.Context) (err error) {
		view, err = p.auction.GetCurrentAuctionView(ctx)
		return err
	})

	failed, err := r.wait()
	if err != nil {
		p.logger.Printf("fetch auction state: %v", err)
		return nil, err
	}

	fetchedAt := p.now().Unix()
	state := &AuctionState{
		AuctionActive:    active,
		CurrentAuctionID: currentID.String(),
		CurrentAuction:   toAuction(current),
		GenesisStarted:   genesis,
		RestInterval:     strconv.FormatInt(p.restInterval, 10),
		FetchedAt:        fetchedAt,
	}
	snap := &domain.AuctionSnapshot{
		Current:        current,
		AuctionActive:  &active,
		GenesisStarted: &genesis,
		FetchedAt:      fetchedAt,
	}

	if _, bad := failed["canSettleAuction"]; !bad {
		state.CanSettleAuction = &canSettle
		snap.CanSettle = &canSettle
	}
	if _, bad := failed["canClaimNFT"]; !bad {
		state.CanClaimNFT = &canClaim
	}
	state.AuctionsSinceLastRest = optBigString(sinceRest)
	state.NextAuctionEarliestStartTime = optBigString(nextStart)
	snap.NextAuctionEarliestStartTime = nextStart
	state.AuctionDuration = optBigString(duration)
	state.RestDuration = optBigString(rest)
	if _, bad := failed["payoutAddress"]; !bad {
		state.PayoutAddress = addressString(payout)
	}
	if _, bad := failed["owner"]; !bad {
		state.Owner = addressString(owner)
		snap.Owner = &owner
	}
	if view != nil {
		state.HasStarted = &view.HasStarted
		state.HasEnded = &view.HasEnded
		state.NextTokenURISeeded = &view.NextTokenURISeeded
		state.TotalBids = optBigString(view.TotalBids)
		snap.HasStarted = &view.HasStarted
		snap.HasEnded = &view.HasEnded
		snap.NextTokenURISeeded = &view.NextTokenURISeeded
		snap.TotalBids = view.TotalBids
		if snap.CanSettle == nil {
			snap.CanSettle = &view.CanSettleNow
		}
	}

	if len(failed) > 0 {
		p.logger.Printf("auction state partial read failure: %v", failed)
		state.Error = partialReadFailure
		state.FailedReads = failed
	}
	state.Snapshot = snap
	return state, nil
}
