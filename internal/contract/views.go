package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"auction-relay/internal/domain"
)

// AuctionActive reads auctionActive().
func (a *Auction) AuctionActive(ctx context.Context) (bool, error) {
	return a.callBool(ctx, "auctionActive")
}

// GenesisStarted reads genesisStarted().
func (a *Auction) GenesisStarted(ctx context.Context) (bool, error) {
	return a.callBool(ctx, "genesisStarted")
}

// CanSettleAuction reads canSettleAuction().
func (a *Auction) CanSettleAuction(ctx context.Context) (bool, error) {
	return a.callBool(ctx, "canSettleAuction")
}

// CanClaimNFT reads canClaimNFT(). Only older deployments expose it.
func (a *Auction) CanClaimNFT(ctx context.Context) (bool, error) {
	return a.callBool(ctx, "canClaimNFT")
}

// IsNextTokenURISeeded reads isNextTokenUriSeeded().
func (a *Auction) IsNextTokenURISeeded(ctx context.Context) (bool, error) {
	return a.callBool(ctx, "isNextTokenUriSeeded")
}

// IsWinner reads isWinner(wallet).
func (a *Auction) IsWinner(ctx context.Context, wallet common.Address) (bool, error) {
	return a.callBool(ctx, "isWinner", wallet)
}

// CurrentAuctionID reads currentAuctionId().
func (a *Auction) CurrentAuctionID(ctx context.Context) (*big.Int, error) {
	return a.callBig(ctx, "currentAuctionId")
}

// AuctionsSinceLastRest reads auctionsSinceLastRest().
func (a *Auction) AuctionsSinceLastRest(ctx context.Context) (*big.Int, error) {
	return a.callBig(ctx, "auctionsSinceLastRest")
}

// NextAuctionEarliestStartTime reads nextAuctionEarliestStartTime().
func (a *Auction) NextAuctionEarliestStartTime(ctx context.Context) (*big.Int, error) {
	return a.callBig(ctx, "nextAuctionEarliestStartTime")
}

// AuctionDuration reads auctionDuration() in seconds.
func (a *Auction) AuctionDuration(ctx context.Context) (*big.Int, error) {
	return a.callBig(ctx, "auctionDuration")
}

// RestDuration reads restDuration() in seconds.
func (a *Auction) RestDuration(ctx context.Context) (*big.Int, error) {
	return a.callBig(ctx, "restDuration")
}

// BalanceOf reads the NFT balance of owner.
func (a *Auction) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return a.callBig(ctx, "balanceOf", owner)
}

// Owner reads owner().
func (a *Auction) Owner(ctx context.Context) (common.Address, error) {
	return a.callAddress(ctx, "owner")
}

// PayoutAddress reads payoutAddress().
func (a *Auction) PayoutAddress(ctx context.Context) (common.Address, error) {
	return a.callAddress(ctx, "payoutAddress")
}

// TokenURI reads tokenURI(tokenId).
func (a *Auction) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	values, err := a.callUnpack(ctx, "tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(values[0], new(string)).(*string), nil
}

// GetAllAuctionIDs reads getAllAuctionIds().
func (a *Auction) GetAllAuctionIDs(ctx context.Context) ([]*big.Int, error) {
	values, err := a.callUnpack(ctx, "getAllAuctionIds")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(values[0], new([]*big.Int)).(*[]*big.Int), nil
}

// GetCurrentAuction reads getCurrentAuction().
func (a *Auction) GetCurrentAuction(ctx context.Context) (*domain.AuctionRecord, error) {
	values, err := a.callUnpack(ctx, "getCurrentAuction")
	if err != nil {
		return nil, err
	}
	t := abi.ConvertType(values[0], new(auctionTuple)).(*auctionTuple)
	return t.record(), nil
}

// Auctions reads the auctions(id) mapping entry.
func (a *Auction) Auctions(ctx context.Context, auctionID *big.Int) (*domain.AuctionRecord, error) {
	out, err := a.call(ctx, "auctions", auctionID)
	if err != nil {
		return nil, err
	}
	var t auctionTuple
	if err := a.abi.UnpackIntoInterface(&t, "auctions", out); err != nil {
		return nil, fmt.Errorf("unpack auctions: %w", err)
	}
	return t.record(), nil
}

// GetAuctionBids reads the bid list of an auction.
func (a *Auction) GetAuctionBids(ctx context.Context, auctionID *big.Int) ([]domain.BidRecord, error) {
	values, err := a.callUnpack(ctx, "getAuctionBids", auctionID)
	if err != nil {
		return nil, err
	}
	tuples := *abi.ConvertType(values[0], new([]bidTuple)).(*[]bidTuple)

	bids := make([]domain.BidRecord, 0, len(tuples))
	for _, t := range tuples {
		bids = append(bids, domain.BidRecord{
			Bidder:    t.Bidder,
			Amount:    t.Amount,
			Timestamp: t.Timestamp,
		})
	}
	return bids, nil
}

// GetCurrentAuctionView reads getCurrentAuctionView().
func (a *Auction) GetCurrentAuctionView(ctx context.Context) (*domain.AuctionView, error) {
	out, err := a.call(ctx, "getCurrentAuctionView")
	if err != nil {
		return nil, err
	}
	var t auctionViewTuple
	if err := a.abi.UnpackIntoInterface(&t, "getCurrentAuctionView", out); err != nil {
		return nil, fmt.Errorf("unpack getCurrentAuctionView: %w", err)
	}
	return &domain.AuctionView{
		AuctionRecord: domain.AuctionRecord{
			AuctionID:     t.AuctionId,
			TokenID:       t.TokenId,
			StartTime:     t.StartTime,
			EndTime:       t.EndTime,
			HighestBidder: t.HighestBidder,
			HighestBid:    t.HighestBid,
			Settled:       t.Settled,
			Exists:        t.Exists,
		},
		IsAuctionActive:    t.IsAuctionActive,
		HasStarted:         t.HasStarted,
		HasEnded:           t.HasEnded,
		CanSettleNow:       t.CanSettleNow,
		NextTokenURISeeded: t.NextTokenUriSeeded,
		TotalBids:          t.TotalBids,
	}, nil
}
