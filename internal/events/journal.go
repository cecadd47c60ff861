package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"auction-relay/internal/domain"
	"auction-relay/internal/storage"
)

// JournalOptions contains configuration for creating a Journal.
type JournalOptions struct {
	Events storage.EventStore
	// Bids receives BidPlaced rows for analytics. Optional.
	Bids      storage.BidStore
	BatchSize int
	Logger    *log.Logger
}

// Journal archives events and feeds bid analytics. Duplicate event IDs are
// skipped, so replaying a log is harmless.
type Journal struct {
	events    storage.EventStore
	bids      storage.BidStore
	batchSize int
	logger    *log.Logger
}

// NewJournal creates a new Journal.
func NewJournal(opts JournalOptions) *Journal {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Journal{
		events:    opts.Events,
		bids:      opts.Bids,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
	}
}

// Handle records e and logs failures. It is a dispatcher Handler.
func (j *Journal) Handle(ctx context.Context, e *domain.ContractEvent) {
	if err := j.Record(ctx, e); err != nil {
		j.logger.Printf("Journal %s %s: %v", e.Kind, e.EventID, err)
	}
}

// Record stores a single event. A removed log flags the archived copy
// instead of adding a row.
func (j *Journal) Record(ctx context.Context, e *domain.ContractEvent) error {
	if e.Removed {
		err := j.events.MarkRemoved(ctx, e.EventID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("mark removed: %w", err)
		}
		return nil
	}

	if err := j.events.Insert(ctx, e); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("insert event: %w", err)
	}

	if row, ok := BidRowFrom(e); ok && j.bids != nil {
		if err := j.bids.InsertBulk(ctx, []*domain.BidRow{row}); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("insert bid: %w", err)
		}
	}
	return nil
}

// StoreBatch stores events in batches. A batch that hits a duplicate is
// retried one event at a time to separate duplicates from new rows.
func (j *Journal) StoreBatch(ctx context.Context, events []*domain.ContractEvent) (stored, dupes, errs int) {
	for i := 0; i < len(events); i += j.batchSize {
		end := i + j.batchSize
		if end > len(events) {
			end = len(events)
		}

		batch := events[i:end]
		var inserted []*domain.ContractEvent
		err := j.events.InsertBulk(ctx, batch)
		switch {
		case err == nil:
			inserted = batch
		case errors.Is(err, storage.ErrDuplicateKey):
			for _, e := range batch {
				if err := j.events.Insert(ctx, e); err != nil {
					if errors.Is(err, storage.ErrDuplicateKey) {
						dupes++
					} else {
						errs++
					}
					continue
				}
				inserted = append(inserted, e)
			}
		default:
			errs += len(batch)
			j.logger.Printf("Error storing event batch: %v", err)
			continue
		}

		stored += len(inserted)
		j.storeBids(ctx, inserted)
	}
	return stored, dupes, errs
}

func (j *Journal) storeBids(ctx context.Context, events []*domain.ContractEvent) {
	if j.bids == nil {
		return
	}
	var rows []*domain.BidRow
	for _, e := range events {
		if row, ok := BidRowFrom(e); ok {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return
	}

	err := j.bids.InsertBulk(ctx, rows)
	if err == nil {
		return
	}
	if !errors.Is(err, storage.ErrDuplicateKey) {
		j.logger.Printf("Error storing bid batch: %v", err)
		return
	}
	for _, row := range rows {
		if err := j.bids.InsertBulk(ctx, []*domain.BidRow{row}); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			j.logger.Printf("Error storing bid %s: %v", row.EventID, err)
		}
	}
}

// BidRowFrom flattens a BidPlaced event into an analytics row.
func BidRowFrom(e *domain.ContractEvent) (*domain.BidRow, bool) {
	if e.Kind != domain.EventBidPlaced || e.AuctionID == nil || e.Account == nil || e.Amount == nil {
		return nil, false
	}
	if !e.AuctionID.IsUint64() {
		return nil, false
	}
	return &domain.BidRow{
		EventID:     e.EventID,
		AuctionID:   e.AuctionID.Uint64(),
		Bidder:      strings.ToLower(e.Account.Hex()),
		AmountWei:   e.Amount.String(),
		AmountEth:   decimal.NewFromBigInt(e.Amount, -18).InexactFloat64(),
		BlockNumber: e.BlockNumber,
		ObservedAt:  e.ObservedAt,
	}, true
}
