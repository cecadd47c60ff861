package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"auction-relay/internal/chain"
	"auction-relay/internal/domain"
	"auction-relay/internal/idhash"
)

// EventID returns the topic0 of a watched event.
func (a *Auction) EventID(kind domain.EventKind) (common.Hash, bool) {
	ev, ok := a.abi.Events[string(kind)]
	if !ok {
		return common.Hash{}, false
	}
	return ev.ID, true
}

// LogFilter returns a filter matching every watched event emitted by the contract.
func (a *Auction) LogFilter() chain.LogFilter {
	ids := make([]common.Hash, 0, len(domain.AllEventKinds))
	for _, kind := range domain.AllEventKinds {
		if id, ok := a.EventID(kind); ok {
			ids = append(ids, id)
		}
	}
	return chain.LogFilter{
		Addresses: []common.Address{a.address},
		Topics:    [][]common.Hash{ids},
	}
}

// DecodeLog decodes a contract log into a ContractEvent.
// Returns ErrUnknownEvent for logs from other contracts or unwatched events.
func (a *Auction) DecodeLog(l types.Log) (*domain.ContractEvent, error) {
	if l.Address != a.address || len(l.Topics) == 0 {
		return nil, ErrUnknownEvent
	}
	ev, err := a.abi.EventByID(l.Topics[0])
	if err != nil {
		return nil, fmt.Errorf("topic %s: %w", l.Topics[0].Hex(), ErrUnknownEvent)
	}
	if !isWatched(ev.Name) {
		return nil, fmt.Errorf("event %s: %w", ev.Name, ErrUnknownEvent)
	}

	fields := make(map[string]interface{})
	if len(ev.Inputs.NonIndexed()) > 0 {
		if err := ev.Inputs.UnpackIntoMap(fields, l.Data); err != nil {
			return nil, fmt.Errorf("unpack %s data: %w", ev.Name, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(fields, indexed, l.Topics[1:]); err != nil {
			return nil, fmt.Errorf("parse %s topics: %w", ev.Name, err)
		}
	}

	out := &domain.ContractEvent{
		EventID:     idhash.EventID(l.TxHash, l.Index),
		Kind:        domain.EventKind(ev.Name),
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash,
		LogIndex:    l.Index,
		Removed:     l.Removed,
	}

	switch out.Kind {
	case domain.EventBidPlaced, domain.EventBidRefunded:
		out.AuctionID = bigField(fields, "auctionId")
		out.Account = addressField(fields, "bidder")
		out.Amount = bigField(fields, "amount")
	case domain.EventAuctionSettled:
		out.AuctionID = bigField(fields, "auctionId")
		out.Account = addressField(fields, "winner")
		out.Amount = bigField(fields, "amount")
		out.TokenID = bigField(fields, "tokenId")
	case domain.EventAuctionStarted:
		out.AuctionID = bigField(fields, "auctionId")
		out.TokenID = bigField(fields, "tokenId")
		out.EndTime = bigField(fields, "endTime")
	case domain.EventRestScheduled:
		// Deployments disagree on the argument name; take the single value.
		out.NextAuctionStartTime = bigField(fields, ev.Inputs[0].Name)
	case domain.EventAuctionDurationUpdated, domain.EventRestDurationUpdated:
		out.NewDuration = bigField(fields, ev.Inputs[0].Name)
	}
	return out, nil
}

func isWatched(name string) bool {
	for _, kind := range domain.AllEventKinds {
		if string(kind) == name {
			return true
		}
	}
	return false
}

func bigField(fields map[string]interface{}, name string) *big.Int {
	if v, ok := fields[name].(*big.Int); ok {
		return v
	}
	return nil
}

func addressField(fields map[string]interface{}, name string) *common.Address {
	if v, ok := fields[name].(common.Address); ok {
		return &v
	}
	return nil
}
