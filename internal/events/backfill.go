package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"auction-relay/internal/chain"
	"auction-relay/internal/domain"
	"auction-relay/internal/storage"
)

// Backfiller journals historical logs read with eth_getLogs.
type Backfiller struct {
	client       chain.RPCClient
	decoder      Decoder
	filter       chain.LogFilter
	journal      *Journal
	cursors      storage.CursorStore
	subscriberID string
	blockRange   uint64
	logger       *log.Logger
	now          func() time.Time
}

// BackfillOptions contains configuration for creating a Backfiller.
type BackfillOptions struct {
	Client  chain.RPCClient
	Decoder Decoder
	Filter  chain.LogFilter
	Journal *Journal
	// Cursors records the last backfilled block under SubscriberID. Optional.
	Cursors      storage.CursorStore
	SubscriberID string
	BlockRange   uint64 // Default: DefaultMaxBlockRange
	Logger       *log.Logger
}

// NewBackfiller creates a new historical log backfiller.
func NewBackfiller(opts BackfillOptions) *Backfiller {
	blockRange := opts.BlockRange
	if blockRange == 0 {
		blockRange = DefaultMaxBlockRange
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Backfiller{
		client:       opts.Client,
		decoder:      opts.Decoder,
		filter:       opts.Filter,
		journal:      opts.Journal,
		cursors:      opts.Cursors,
		subscriberID: opts.SubscriberID,
		blockRange:   blockRange,
		logger:       logger,
		now:          time.Now,
	}
}

// BackfillResult contains statistics from a backfill operation.
type BackfillResult struct {
	FromBlock         uint64
	ToBlock           uint64
	LogsFetched       int
	EventsStored      int
	DuplicatesSkipped int
	DecodeErrors      int
	Errors            int
	Duration          time.Duration
}

// BackfillRange journals every watched log in [from, to].
func (b *Backfiller) BackfillRange(ctx context.Context, from, to uint64) (*BackfillResult, error) {
	start := time.Now()
	result := &BackfillResult{FromBlock: from, ToBlock: to}
	if from > to {
		return result, fmt.Errorf("from block %d after to block %d: %w", from, to, storage.ErrInvalidInput)
	}

	b.logger.Printf("Starting backfill from block %d to %d", from, to)

	for lo := from; lo <= to; {
		hi := lo + b.blockRange - 1
		if hi > to || hi < lo {
			hi = to
		}

		filter := b.filter
		filter.FromBlock = new(big.Int).SetUint64(lo)
		filter.ToBlock = new(big.Int).SetUint64(hi)

		logs, err := b.client.FilterLogs(ctx, filter)
		if err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("get logs %d-%d: %w", lo, hi, err)
		}
		SortLogs(logs)
		result.LogsFetched += len(logs)

		observed := b.now().UnixMilli()
		events := make([]*domain.ContractEvent, 0, len(logs))
		for _, l := range logs {
			e, err := b.decoder.DecodeLog(l)
			if err != nil {
				result.DecodeErrors++
				continue
			}
			e.ObservedAt = observed
			events = append(events, e)
		}

		stored, dupes, errs := b.journal.StoreBatch(ctx, events)
		result.EventsStored += stored
		result.DuplicatesSkipped += dupes
		result.Errors += errs

		if b.cursors != nil && b.subscriberID != "" {
			if err := b.cursors.SetCursor(ctx, b.subscriberID, hi); err != nil {
				b.logger.Printf("Error saving cursor at block %d: %v", hi, err)
			}
		}

		if hi == to {
			break
		}
		lo = hi + 1
	}

	result.Duration = time.Since(start)
	b.logger.Printf("Backfill complete: %d logs, %d stored, %d dupes, %d undecodable, %d errors in %v",
		result.LogsFetched, result.EventsStored, result.DuplicatesSkipped,
		result.DecodeErrors, result.Errors, result.Duration)

	return result, nil
}

// Resume backfills from the block after the saved cursor up to the current
// head. startBlock is used when no cursor exists.
func (b *Backfiller) Resume(ctx context.Context, startBlock uint64) (*BackfillResult, error) {
	from := startBlock
	if b.cursors != nil && b.subscriberID != "" {
		last, err := b.cursors.GetCursor(ctx, b.subscriberID)
		switch {
		case err == nil:
			from = last + 1
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("get cursor: %w", err)
		}
	}

	head, err := b.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}
	if from > head {
		b.logger.Printf("Backfill up to date at block %d", head)
		return &BackfillResult{FromBlock: from, ToBlock: head}, nil
	}
	return b.BackfillRange(ctx, from, head)
}
