package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"auction-relay/internal/chain"
	"auction-relay/internal/storage"
)

const (
	// DefaultPollInterval matches the wagmi HTTP transport polling interval.
	DefaultPollInterval = 4 * time.Second
	// DefaultMaxBlockRange bounds a single eth_getLogs request.
	DefaultMaxBlockRange = 2000
)

// PollOptions configures a PollSource.
type PollOptions struct {
	Client chain.RPCClient
	Filter chain.LogFilter
	// Cursors persists the last polled block under SubscriberID. Optional.
	Cursors      storage.CursorStore
	SubscriberID string
	// StartBlock is used when no cursor exists. Zero starts after the current head.
	StartBlock    uint64
	Interval      time.Duration
	MaxBlockRange uint64
	Logger        *log.Logger
}

// PollSource reads logs with eth_getLogs from a block cursor.
type PollSource struct {
	client       chain.RPCClient
	filter       chain.LogFilter
	cursors      storage.CursorStore
	subscriberID string
	startBlock   uint64
	interval     time.Duration
	maxRange     uint64
	logger       *log.Logger
}

// NewPollSource creates a new polling log source.
func NewPollSource(opts PollOptions) *PollSource {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.MaxBlockRange == 0 {
		opts.MaxBlockRange = DefaultMaxBlockRange
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &PollSource{
		client:       opts.Client,
		filter:       opts.Filter,
		cursors:      opts.Cursors,
		subscriberID: opts.SubscriberID,
		startBlock:   opts.StartBlock,
		interval:     opts.Interval,
		maxRange:     opts.MaxBlockRange,
		logger:       opts.Logger,
	}
}

// Name returns "poll".
func (s *PollSource) Name() string {
	return "poll"
}

// Subscribe resolves the first block to poll and starts the poll loop.
// The returned channel is closed when ctx is cancelled.
func (s *PollSource) Subscribe(ctx context.Context) (<-chan types.Log, error) {
	from, err := s.resolveStart(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("Polling logs from block %d every %v", from, s.interval)

	ch := make(chan types.Log)
	go s.loop(ctx, from, ch)
	return ch, nil
}

func (s *PollSource) resolveStart(ctx context.Context) (uint64, error) {
	if s.cursors != nil && s.subscriberID != "" {
		last, err := s.cursors.GetCursor(ctx, s.subscriberID)
		if err == nil {
			return last + 1, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return 0, fmt.Errorf("get cursor: %w", err)
		}
	}
	if s.startBlock > 0 {
		return s.startBlock, nil
	}
	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("block number: %w", err)
	}
	return head + 1, nil
}

func (s *PollSource) loop(ctx context.Context, from uint64, out chan<- types.Log) {
	defer close(out)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		next, err := s.poll(ctx, from, out)
		if err != nil && ctx.Err() == nil {
			s.logger.Printf("Poll from block %d: %v", from, err)
		}
		from = next

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll reads [from, head] in ranges of at most maxRange blocks and returns
// the next block to read. The cursor advances after each range is handed off.
func (s *PollSource) poll(ctx context.Context, from uint64, out chan<- types.Log) (uint64, error) {
	head, err := s.client.BlockNumber(ctx)
	if err != nil {
		return from, fmt.Errorf("block number: %w", err)
	}

	for from <= head {
		to := from + s.maxRange - 1
		if to > head {
			to = head
		}

		filter := s.filter
		filter.FromBlock = new(big.Int).SetUint64(from)
		filter.ToBlock = new(big.Int).SetUint64(to)

		logs, err := s.client.FilterLogs(ctx, filter)
		if err != nil {
			return from, fmt.Errorf("get logs %d-%d: %w", from, to, err)
		}
		SortLogs(logs)

		for _, l := range logs {
			select {
			case out <- l:
			case <-ctx.Done():
				return from, ctx.Err()
			}
		}

		if s.cursors != nil && s.subscriberID != "" {
			if err := s.cursors.SetCursor(ctx, s.subscriberID, to); err != nil {
				s.logger.Printf("Set cursor to %d: %v", to, err)
			}
		}
		from = to + 1
	}
	return from, nil
}
