package events

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"

	"auction-relay/internal/chain"
)

// ResyncOptions configures a Resyncer.
type ResyncOptions struct {
	Client     chain.RPCClient
	Filter     chain.LogFilter
	Dispatcher *Dispatcher
	BlockRange uint64 // Default: DefaultMaxBlockRange

	// LastBlock returns the highest block already dispatched, zero when
	// none is known.
	LastBlock func() uint64

	// Reset runs after every resync, replayed or not.
	Reset  func()
	Logger *log.Logger
}

// Resyncer closes the gap a dropped log subscription leaves behind.
type Resyncer struct {
	mu         sync.Mutex
	client     chain.RPCClient
	filter     chain.LogFilter
	dispatcher *Dispatcher
	blockRange uint64
	lastBlock  func() uint64
	reset      func()
	logger     *log.Logger
}

// NewResyncer creates a new Resyncer.
func NewResyncer(opts ResyncOptions) *Resyncer {
	if opts.BlockRange == 0 {
		opts.BlockRange = DefaultMaxBlockRange
	}
	if opts.LastBlock == nil {
		opts.LastBlock = func() uint64 { return 0 }
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Resyncer{
		client:     opts.Client,
		filter:     opts.Filter,
		dispatcher: opts.Dispatcher,
		blockRange: opts.BlockRange,
		lastBlock:  opts.LastBlock,
		reset:      opts.Reset,
		logger:     opts.Logger,
	}
}

// Resync dispatches every watched log from the last seen block up to the
// current head, then runs Reset. The last seen block is replayed because a
// disconnect can split it; consumers skip what they already have.
// Concurrent calls run one at a time.
func (r *Resyncer) Resync(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reset != nil {
		defer r.reset()
	}

	from := r.lastBlock()
	if from == 0 {
		r.logger.Println("No block seen yet, nothing to replay")
		return 0, nil
	}

	head, err := r.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("block number: %w", err)
	}
	if from > head {
		return 0, nil
	}

	replayed := 0
	for lo := from; lo <= head; {
		hi := lo + r.blockRange - 1
		if hi > head || hi < lo {
			hi = head
		}

		filter := r.filter
		filter.FromBlock = new(big.Int).SetUint64(lo)
		filter.ToBlock = new(big.Int).SetUint64(hi)

		logs, err := r.client.FilterLogs(ctx, filter)
		if err != nil {
			return replayed, fmt.Errorf("get logs %d-%d: %w", lo, hi, err)
		}
		SortLogs(logs)

		for _, l := range logs {
			if err := r.dispatcher.HandleLog(ctx, "resync", l); err != nil {
				r.logger.Printf("Resync: %v", err)
				continue
			}
			replayed++
		}

		if hi == head {
			break
		}
		lo = hi + 1
	}

	r.logger.Printf("Resynced blocks %d-%d: %d logs", from, head, replayed)
	return replayed, nil
}
