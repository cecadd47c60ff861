// Package events turns contract logs into decoded events and fans them out
// to the registered consumers.
package events

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"

	"auction-relay/internal/domain"
)

// Source provides raw contract logs.
type Source interface {
	// Name labels the source in logs and metrics.
	Name() string
	// Subscribe returns a channel of logs in the order the source saw them.
	// The channel is closed when the source stops.
	Subscribe(ctx context.Context) (<-chan types.Log, error)
}

// Decoder turns a raw log into a ContractEvent.
type Decoder interface {
	DecodeLog(l types.Log) (*domain.ContractEvent, error)
}
