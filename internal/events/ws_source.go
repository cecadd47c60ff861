package events

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"

	"auction-relay/internal/chain"
)

// WSSource streams logs over an eth_subscribe("logs") subscription.
// Reconnects are handled by the underlying client.
type WSSource struct {
	client chain.WSClient
	filter chain.LogFilter
}

// NewWSSource creates a new WebSocket log source.
func NewWSSource(client chain.WSClient, filter chain.LogFilter) *WSSource {
	return &WSSource{client: client, filter: filter}
}

// Name returns "ws".
func (s *WSSource) Name() string {
	return "ws"
}

// Subscribe subscribes to logs matching the source filter.
func (s *WSSource) Subscribe(ctx context.Context) (<-chan types.Log, error) {
	ch, err := s.client.SubscribeLogs(ctx, s.filter)
	if err != nil {
		return nil, fmt.Errorf("subscribe logs: %w", err)
	}
	return ch, nil
}
