package proxy

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"auction-relay/internal/metadata"
	"auction-relay/internal/refresh"
)

// UserDashboard returns the balance and won NFTs of address. The document
// is shared by every casing of the address and echoes its checksum form.
func (p *Proxy) UserDashboard(ctx context.Context, address string) (*UserDashboard, error) {
	user, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}

	key := refresh.Key(EndpointUserDashboard, strings.ToLower(user.Hex()))
	v, err := p.cache.Get(ctx, key, func(ctx context.Context) (interface{}, error) {
		return p.fetchUserDashboard(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return v.(*UserDashboard), nil
}

func (p *Proxy) fetchUserDashboard(ctx context.Context, user common.Address) (*UserDashboard, error) {
	var balance, nftBalance *big.Int

	r := newReads(ctx)
	r.required("getBalance", func(ctx context.Context) (err error) {
		balance, err = p.client.BalanceAt(ctx, user)
		return err
	})
	r.required("balanceOf", func(ctx context.Context) (err error) {
		nftBalance, err = p.auction.BalanceOf(ctx, user)
		return err
	})
	if _, err := r.wait(); err != nil {
		p.logger.Printf("fetch dashboard for %s: %v", user.Hex(), err)
		return nil, err
	}

	nfts := []UserNFT{}
	if nftBalance.Sign() > 0 {
		won, err := p.wonAuctions(ctx, user)
		if err != nil {
			return nil, err
		}
		nfts = won
	}

	return &UserDashboard{
		UserAddress: user.Hex(),
		Balance: Balance{
			Value:     balance.String(),
			Formatted: FormatEther(balance, 4),
			Symbol:    "ETH",
		},
		NFTBalance: nftBalance.String(),
		UserNFTs:   nfts,
	}, nil
}

// wonAuctions walks every auction and keeps the settled ones user won.
// An auction that fails to read is skipped.
func (p *Proxy) wonAuctions(ctx context.Context, user common.Address) ([]UserNFT, error) {
	ids, err := p.auction.GetAllAuctionIDs(ctx)
	if err != nil {
		return nil, &RequiredReadError{Read: "getAllAuctionIds", Err: err}
	}

	nfts := []UserNFT{}
	for _, id := range ids {
		rec, err := p.auction.Auctions(ctx, id)
		if err != nil {
			p.logger.Printf("read auction %s: %v", id, err)
			continue
		}
		// Address equality is case-insensitive by construction.
		if !rec.Settled || rec.HighestBidder != user {
			continue
		}

		tokenID := rec.TokenID
		nft := UserNFT{
			TokenID:    tokenID.String(),
			Name:       metadata.FallbackName(tokenID.String()),
			Image:      metadata.TokenImageURL(p.nftBaseURI, tokenID),
			AuctionID:  id.String(),
			WinningBid: bigString(rec.HighestBid),
		}

		preview := p.metadata.Fetch(ctx, metadata.TokenMetadataURL(p.nftBaseURI, tokenID))
		if !preview.Placeholder {
			if preview.Name != "" {
				nft.Name = preview.Name
			}
			if preview.Image != "" {
				nft.Image = preview.Image
			}
		}
		nfts = append(nfts, nft)
	}
	return nfts, nil
}
