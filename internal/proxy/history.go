package proxy

import (
	"context"
	"math/big"
	"sort"

	"auction-relay/internal/refresh"
)

// AuctionHistory returns up to ten past auctions, newest first. The current
// auction and ids that do not exist are excluded. An auction whose reads
// fail is skipped and named in FailedReads.
func (p *Proxy) AuctionHistory(ctx context.Context) (*AuctionHistory, error) {
	v, err := p.cache.Get(ctx, refresh.Key(EndpointAuctionHistory), func(ctx context.Context) (interface{}, error) {
		return p.fetchAuctionHistory(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*AuctionHistory), nil
}

func (p *Proxy) fetchAuctionHistory(ctx context.Context) (*AuctionHistory, error) {
	var (
		allIDs    []*big.Int
		currentID *big.Int
	)

	r := newReads(ctx)
	r.required("getAllAuctionIds", func(ctx context.Context) (err error) {
		allIDs, err = p.auction.GetAllAuctionIDs(ctx)
		return err
	})
	r.required("currentAuctionId", func(ctx context.Context) (err error) {
		currentID, err = p.auction.CurrentAuctionID(ctx)
		return err
	})
	if _, err := r.wait(); err != nil {
		p.logger.Printf("fetch auction history: %v", err)
		return nil, err
	}

	historical := make([]*big.Int, 0, len(allIDs))
	for _, id := range allIDs {
		if id.Cmp(currentID) != 0 {
			historical = append(historical, id)
		}
	}
	sort.Slice(historical, func(i, j int) bool {
		return historical[i].Cmp(historical[j]) > 0
	})

	toFetch := historical
	if len(toFetch) > historyLimit {
		toFetch = toFetch[:historyLimit]
	}

	// Auctions are fetched in parallel; each slot keeps its position so the
	// result stays newest first.
	slots := make([]*Auction, len(toFetch))
	per := newReads(ctx)
	for i, id := range toFetch {
		per.optional("auction "+id.String(), func(ctx context.Context) error {
			rec, err := p.auction.Auctions(ctx, id)
			if err != nil {
				return err
			}
			bids, err := p.auction.GetAuctionBids(ctx, id)
			if err != nil {
				return err
			}
			if !rec.Exists {
				return nil
			}
			a := toAuction(rec)
			a.Bids = toBids(bids)
			slots[i] = a
			return nil
		})
	}
	failed, _ := per.wait()

	auctions := make([]*Auction, 0, len(slots))
	for _, a := range slots {
		if a != nil {
			auctions = append(auctions, a)
		}
	}

	h := &AuctionHistory{
		Auctions:         auctions,
		TotalAuctionIDs:  len(allIDs),
		CurrentAuctionID: currentID.String(),
		HistoricalCount:  len(historical),
	}
	if len(failed) > 0 {
		p.logger.Printf("auction history skipped %d auctions: %v", len(failed), failed)
		h.Error = partialReadFailure
		h.FailedReads = failed
	}
	return h, nil
}
