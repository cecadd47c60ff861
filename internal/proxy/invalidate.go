package proxy

import (
	"strings"

	"auction-relay/internal/domain"
	"auction-relay/internal/observability"
	"auction-relay/internal/refresh"
)

// KeysFor returns the cache keys and key prefixes an event makes stale.
// Prefixes end in "?" and cover every parameterized key of an endpoint.
func KeysFor(e *domain.ContractEvent) []string {
	keys := []string{refresh.Key(EndpointAuctionState)}

	switch e.Kind {
	case domain.EventBidPlaced, domain.EventBidRefunded:
		// Bids and refunds move bidder balances.
		keys = append(keys,
			refresh.Key(EndpointAuctionHistory),
			EndpointActivity+"?",
			EndpointUserDashboard+"?",
		)
	case domain.EventAuctionSettled:
		keys = append(keys,
			refresh.Key(EndpointAuctionHistory),
			EndpointActivity+"?",
			EndpointUserDashboard+"?",
		)
		if e.TokenID != nil {
			keys = append(keys,
				refresh.Key(EndpointTokenURI, e.TokenID.String()),
				refresh.Key(EndpointNFTPreview, e.TokenID.String()),
			)
		}
	case domain.EventAuctionStarted, domain.EventAuctionsCompleted, domain.EventRestScheduled:
		keys = append(keys, refresh.Key(EndpointAuctionHistory))
	}

	if e.AuctionID != nil {
		keys = append(keys, refresh.Key(EndpointAuctionEvents, e.AuctionID.String()))
	}
	return keys
}

// AllKeys returns a key or prefix for every cached endpoint, for a reset
// that may have missed any number of events.
func AllKeys() []string {
	return []string{
		refresh.Key(EndpointAuctionState),
		refresh.Key(EndpointAuctionHistory),
		EndpointTokenURI + "?",
		EndpointNFTPreview + "?",
		EndpointUserDashboard + "?",
		EndpointActivity + "?",
		EndpointAuctionEvents + "?",
	}
}

// Reset drops every cached document and returns AllKeys.
func (p *Proxy) Reset() []string {
	p.cache.InvalidateAll()
	observability.RecordInvalidation("reset")
	return AllKeys()
}

// Invalidate drops the cache keys e makes stale and returns KeysFor(e).
// Removed (reorged) logs invalidate the same keys.
func (p *Proxy) Invalidate(e *domain.ContractEvent) []string {
	keys := KeysFor(e)
	for _, key := range keys {
		if strings.HasSuffix(key, "?") {
			p.cache.InvalidatePrefix(key)
			continue
		}
		p.cache.Invalidate(key)
	}
	observability.RecordInvalidation(string(e.Kind))
	return keys
}
