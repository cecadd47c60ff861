package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
)

// WSClient defines the websocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to contract logs matching the filter.
	// Block bounds on the filter are ignored.
	SubscribeLogs(ctx context.Context, filter LogFilter) (<-chan types.Log, error)

	// Close closes the WebSocket connection.
	Close() error
}
