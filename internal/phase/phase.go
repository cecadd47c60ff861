// Package phase projects an auction snapshot and a wall-clock time onto the
// phase the UI shows and the actions it permits.
package phase

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"auction-relay/internal/domain"
)

// Phase is a derived, never-stored UI state.
type Phase string

const (
	Loading                 Phase = "Loading"
	AwaitingGenesis         Phase = "AwaitingGenesis"
	Resting                 Phase = "Resting"
	Scheduled               Phase = "Scheduled"
	Live                    Phase = "Live"
	EndedAwaitingSettlement Phase = "EndedAwaitingSettlement"
	EndedCanSettle          Phase = "EndedCanSettle"
)

// Action is a user action gated by phase.
type Action string

const (
	ActionBid            Action = "bid"
	ActionSettle         Action = "settle"
	ActionStartGenesis   Action = "startGenesis"
	ActionStartAfterRest Action = "startAfterRest"
)

// ActionState is an action the UI renders, enabled or not.
type ActionState struct {
	Action  Action `json:"action"`
	Enabled bool   `json:"enabled"`
}

// Status copy.
const (
	StatusLive              = "Live auction"
	StatusAwaitingFirstBid  = "Awaiting first bid"
	StatusNoBids            = "No bids yet"
	StatusEndedCanSettle    = "Auction ended. Anyone can settle."
	StatusEndedAwaiting     = "Auction ended; awaiting settlement"
	StatusAwaitingGenesis   = "Awaiting genesis auction"
	StatusInactive          = "Auction inactive"
	StatusLoading           = "Loading"
	statusRestingUntilFmt   = "Resting until %s"
	statusRestingTimeLayout = "2006-01-02 15:04:05 UTC"
)

// Input is what the projector reads. Viewer is the connected wallet, if any.
type Input struct {
	Snapshot *domain.AuctionSnapshot
	Viewer   *common.Address
}

// Projection is the projector output.
type Projection struct {
	Phase            Phase         `json:"phase"`
	Actions          []ActionState `json:"actions"`
	Status           string        `json:"status"`
	BidLabel         string        `json:"bidLabel,omitempty"` // "No bids yet" when highestBid is zero
	SecondsRemaining int64         `json:"secondsRemaining"`
	MinBid           *big.Int      `json:"-"`
	HasBids          bool          `json:"hasBids"`
	IsOwner          bool          `json:"isOwner"`
}

// Enabled reports whether action is present and enabled.
func (p Projection) Enabled(action Action) bool {
	for _, a := range p.Actions {
		if a.Action == action {
			return a.Enabled
		}
	}
	return false
}

// Has reports whether action is present at all.
func (p Projection) Has(action Action) bool {
	for _, a := range p.Actions {
		if a.Action == action {
			return true
		}
	}
	return false
}

// Project maps a snapshot and nowSeconds to a phase. First match wins:
//  1. !genesisStarted                          -> AwaitingGenesis
//  2. !auctionActive && nextStart > 0          -> Resting
//  3. !auctionActive                           -> Scheduled
//  4. hasEnded || (endTime > 0 && now >= end)  -> EndedCanSettle / EndedAwaitingSettlement
//  5. otherwise                                -> Live
//
// Missing inputs yield Loading with no actions. Project never fails.
func Project(in Input, nowSeconds int64, rules Rules) Projection {
	s := in.Snapshot
	if s == nil || s.GenesisStarted == nil {
		return loading()
	}

	isOwner := in.Viewer != nil && s.Owner != nil && *in.Viewer == *s.Owner

	if !*s.GenesisStarted {
		seeded := s.NextTokenURISeeded != nil && *s.NextTokenURISeeded
		p := Projection{
			Phase:   AwaitingGenesis,
			Status:  StatusAwaitingGenesis,
			IsOwner: isOwner,
		}
		if isOwner {
			p.Actions = []ActionState{{Action: ActionStartGenesis, Enabled: seeded}}
		}
		return p
	}

	if s.AuctionActive == nil {
		return loading()
	}

	if !*s.AuctionActive {
		next := int64Of(s.NextAuctionEarliestStartTime)
		if next > 0 {
			return Projection{
				Phase:            Resting,
				Status:           fmt.Sprintf(statusRestingUntilFmt, time.Unix(next, 0).UTC().Format(statusRestingTimeLayout)),
				SecondsRemaining: remaining(next, nowSeconds),
				Actions:          []ActionState{{Action: ActionStartAfterRest, Enabled: nowSeconds >= next}},
				IsOwner:          isOwner,
			}
		}
		return Projection{Phase: Scheduled, Status: StatusInactive, IsOwner: isOwner}
	}

	a := s.Current
	if a == nil || a.EndTime == nil || a.StartTime == nil {
		return loading()
	}

	hasBids := a.HasBids()
	p := Projection{
		HasBids: hasBids,
		MinBid:  MinimumBid(a.HighestBid, rules),
		IsOwner: isOwner,
	}
	if !hasBids {
		p.BidLabel = StatusNoBids
	}

	endTime := int64Of(a.EndTime)
	ended := boolOf(s.HasEnded) || (endTime > 0 && nowSeconds >= endTime)
	if ended {
		if boolOf(s.CanSettle) {
			p.Phase = EndedCanSettle
			p.Status = StatusEndedCanSettle
			p.Actions = []ActionState{{Action: ActionSettle, Enabled: true}}
		} else {
			p.Phase = EndedAwaitingSettlement
			p.Status = StatusEndedAwaiting
			p.Actions = []ActionState{{Action: ActionSettle, Enabled: false}}
		}
		return p
	}

	started := nowSeconds >= int64Of(a.StartTime)
	if s.HasStarted != nil && !*s.HasStarted {
		started = false
	}

	p.Phase = Live
	p.SecondsRemaining = remaining(endTime, nowSeconds)
	p.Actions = []ActionState{{Action: ActionBid, Enabled: started}}
	if hasBids {
		p.Status = StatusLive
	} else {
		p.Status = StatusAwaitingFirstBid
	}
	return p
}

func loading() Projection {
	return Projection{Phase: Loading, Status: StatusLoading}
}

func remaining(target, now int64) int64 {
	if target <= now {
		return 0
	}
	return target - now
}

func int64Of(v *big.Int) int64 {
	if v == nil || !v.IsInt64() {
		return 0
	}
	return v.Int64()
}

func boolOf(v *bool) bool {
	return v != nil && *v
}
