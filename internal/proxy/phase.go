package proxy

import (
	"context"

	"auction-relay/internal/domain"
	"auction-relay/internal/phase"
)

// Phase projects the cached snapshot at server time for viewer, which may
// be empty. A failed snapshot read projects Loading rather than failing.
func (p *Proxy) Phase(ctx context.Context, viewer string) (*PhaseView, error) {
	in := phase.Input{}
	if viewer != "" {
		addr, err := ParseAddress(viewer)
		if err != nil {
			return nil, err
		}
		in.Viewer = &addr
	}

	var fetchedAt int64
	state, err := p.AuctionState(ctx)
	if err != nil {
		p.logger.Printf("phase: %v", err)
	} else {
		in.Snapshot = state.Snapshot
		fetchedAt = state.FetchedAt
	}

	now := p.now().Unix()
	proj := phase.Project(in, now, p.rules)

	view := &PhaseView{Projection: proj, ServerTime: now, FetchedAt: fetchedAt}
	if proj.MinBid != nil {
		view.MinBid = proj.MinBid.String()
		view.MinBidEth = FormatEther(proj.MinBid, 4)
	}
	return view, nil
}

// Snapshot returns the cached auction snapshot, refetching it when stale.
func (p *Proxy) Snapshot(ctx context.Context) (*domain.AuctionSnapshot, error) {
	state, err := p.AuctionState(ctx)
	if err != nil {
		return nil, err
	}
	return state.Snapshot, nil
}
