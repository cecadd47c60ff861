package proxy

import (
	"context"
	"math/big"
	"strconv"
	"strings"

	"auction-relay/internal/domain"
	"auction-relay/internal/refresh"
)

// Activity returns the journaled events of address, newest first, with
// totals. limit <= 0 selects DefaultActivityLimit.
func (p *Proxy) Activity(ctx context.Context, address string, limit int) (*Activity, error) {
	user, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	if p.journal == nil {
		return nil, ErrJournalDisabled
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}

	key := refresh.Key(EndpointActivity, strings.ToLower(user.Hex()), strconv.Itoa(limit))
	v, err := p.cache.Get(ctx, key, func(ctx context.Context) (interface{}, error) {
		events, err := p.journal.GetByAddress(ctx, user, limit)
		if err != nil {
			return nil, err
		}

		a := &Activity{Address: user.Hex(), Items: make([]ActivityItem, 0, len(events))}
		total := new(big.Int)
		for _, e := range events {
			a.Items = append(a.Items, toActivityItem(e))
			switch e.Kind {
			case domain.EventBidPlaced:
				a.Summary.Bids++
				if e.Amount != nil {
					total.Add(total, e.Amount)
				}
			case domain.EventBidRefunded:
				a.Summary.Refunds++
			case domain.EventAuctionSettled:
				a.Summary.Wins++
			}
		}
		a.Summary.TotalBidWei = total.String()
		a.Summary.TotalBidEth = FormatEther(total, 4)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Activity), nil
}

// AuctionEvents returns the journaled events of one auction in chain order,
// with bid analytics when a bid store is configured.
func (p *Proxy) AuctionEvents(ctx context.Context, auctionID string) (*AuctionEvents, error) {
	id, err := ParseTokenID(auctionID)
	if err != nil {
		return nil, err
	}
	if p.journal == nil {
		return nil, ErrJournalDisabled
	}

	v, err := p.cache.Get(ctx, refresh.Key(EndpointAuctionEvents, id.String()), func(ctx context.Context) (interface{}, error) {
		events, err := p.journal.GetByAuctionID(ctx, id)
		if err != nil {
			return nil, err
		}

		out := &AuctionEvents{AuctionID: id.String(), Items: make([]ActivityItem, 0, len(events))}
		for _, e := range events {
			out.Items = append(out.Items, toActivityItem(e))
		}

		if p.bids != nil && id.IsUint64() {
			stats, err := p.bids.Stats(ctx, id.Uint64())
			if err != nil {
				p.logger.Printf("bid stats for auction %s: %v", id, err)
			} else {
				out.Stats = &BidStats{
					BidCount:        stats.BidCount,
					DistinctBidders: stats.DistinctBidders,
					MaxAmountEth:    stats.MaxAmountEth,
				}
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*AuctionEvents), nil
}
