package clickhouse

import (
	"context"
	"fmt"
	"time"

	"auction-relay/internal/domain"
	"auction-relay/internal/observability"
	"auction-relay/internal/storage"
)

// BidStore implements storage.BidStore using ClickHouse.
type BidStore struct {
	conn *Conn
}

// NewBidStore creates a new BidStore.
func NewBidStore(conn *Conn) *BidStore {
	return &BidStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BidStore = (*BidStore)(nil)

// InsertBulk adds multiple bid rows. Fails entire batch on any duplicate.
// MergeTree does not enforce uniqueness, so duplicates are checked first.
func (s *BidStore) InsertBulk(ctx context.Context, rows []*domain.BidRow) (err error) {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_bids", time.Since(start).Seconds(), err)
	}()

	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.EventID == "" {
			return storage.ErrInvalidInput
		}
		if _, dup := seen[r.EventID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[r.EventID] = struct{}{}
	}

	for _, r := range rows {
		exists, err := s.exists(ctx, r.EventID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bid_events (
			event_id, auction_id, bidder, amount_wei, amount_eth, block_number, observed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		if err := batch.Append(
			r.EventID, r.AuctionID, r.Bidder, r.AmountWei, r.AmountEth, r.BlockNumber, r.ObservedAt,
		); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByAuctionID retrieves bids for an auction ordered by (block_number, event_id).
func (s *BidStore) GetByAuctionID(ctx context.Context, auctionID uint64) ([]*domain.BidRow, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT event_id, auction_id, bidder, amount_wei, amount_eth, block_number, observed_at
		FROM bid_events FINAL
		WHERE auction_id = ?
		ORDER BY block_number ASC, event_id ASC
	`, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get bids by auction: %w", err)
	}
	defer rows.Close()

	var result []*domain.BidRow
	for rows.Next() {
		var r domain.BidRow
		if err := rows.Scan(
			&r.EventID, &r.AuctionID, &r.Bidder, &r.AmountWei, &r.AmountEth, &r.BlockNumber, &r.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("scan bid row: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bid rows: %w", err)
	}
	return result, nil
}

// Stats summarizes bids for an auction.
func (s *BidStore) Stats(ctx context.Context, auctionID uint64) (*domain.BidStats, error) {
	stats := &domain.BidStats{AuctionID: auctionID}
	err := s.conn.QueryRow(ctx, `
		SELECT count(), uniqExact(bidder), max(amount_eth)
		FROM bid_events FINAL
		WHERE auction_id = ?
	`, auctionID).Scan(&stats.BidCount, &stats.DistinctBidders, &stats.MaxAmountEth)
	if err != nil {
		return nil, fmt.Errorf("get bid stats: %w", err)
	}
	return stats, nil
}

func (s *BidStore) exists(ctx context.Context, eventID string) (bool, error) {
	var count uint64
	if err := s.conn.QueryRow(ctx,
		`SELECT count() FROM bid_events WHERE event_id = ?`, eventID,
	).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
