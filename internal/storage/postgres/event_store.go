package postgres

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"auction-relay/internal/domain"
	"auction-relay/internal/observability"
	"auction-relay/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
// Integer fields wider than 64 bits are stored as decimal TEXT.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const insertEventQuery = `
	INSERT INTO contract_events (
		event_id, kind, auction_id, token_id, account, amount_wei,
		end_time, next_start_time, new_duration,
		block_number, tx_hash, log_index, removed, observed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

const selectEventColumns = `
	SELECT event_id, kind, auction_id, token_id, account, amount_wei,
		end_time, next_start_time, new_duration,
		block_number, tx_hash, log_index, removed, observed_at
	FROM contract_events
`

func eventArgs(e *domain.ContractEvent) []interface{} {
	return []interface{}{
		e.EventID,
		string(e.Kind),
		bigText(e.AuctionID),
		bigText(e.TokenID),
		addressText(e.Account),
		bigText(e.Amount),
		bigText(e.EndTime),
		bigText(e.NextAuctionStartTime),
		bigText(e.NewDuration),
		int64(e.BlockNumber),
		e.TxHash.Hex(),
		int64(e.LogIndex),
		e.Removed,
		e.ObservedAt,
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *EventStore) Insert(ctx context.Context, e *domain.ContractEvent) (err error) {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}
	defer observeQuery("insert_event", time.Now(), &err)

	_, err = s.pool.Exec(ctx, insertEventQuery, eventArgs(e)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert contract event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.ContractEvent) (err error) {
	if len(events) == 0 {
		return nil
	}
	defer observeQuery("insert_events_bulk", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertEventQuery, eventArgs(e)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert contract event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// MarkRemoved flags an event reverted by a reorg.
func (s *EventStore) MarkRemoved(ctx context.Context, eventID string) (err error) {
	defer observeQuery("mark_removed", time.Now(), &err)

	tag, err := s.pool.Exec(ctx, `UPDATE contract_events SET removed = TRUE WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("mark event removed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByAddress retrieves events involving account, newest first.
func (s *EventStore) GetByAddress(ctx context.Context, account common.Address, limit int) (_ []*domain.ContractEvent, err error) {
	defer observeQuery("get_events_by_address", time.Now(), &err)

	query := selectEventColumns + `
		WHERE account = $1 AND NOT removed
		ORDER BY block_number DESC, log_index DESC
	`
	args := []interface{}{strings.ToLower(account.Hex())}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get events by address: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByAuctionID retrieves events for an auction in chain order.
func (s *EventStore) GetByAuctionID(ctx context.Context, auctionID *big.Int) (_ []*domain.ContractEvent, err error) {
	if auctionID == nil {
		return nil, storage.ErrInvalidInput
	}
	defer observeQuery("get_events_by_auction", time.Now(), &err)

	rows, err := s.pool.Query(ctx, selectEventColumns+`
		WHERE auction_id = $1 AND NOT removed
		ORDER BY block_number ASC, log_index ASC
	`, auctionID.String())
	if err != nil {
		return nil, fmt.Errorf("get events by auction: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetLatestBlock returns the highest journaled block.
func (s *EventStore) GetLatestBlock(ctx context.Context) (uint64, error) {
	var latest *int64
	if err := s.pool.QueryRow(ctx, `SELECT MAX(block_number) FROM contract_events`).Scan(&latest); err != nil {
		return 0, fmt.Errorf("get latest block: %w", err)
	}
	if latest == nil {
		return 0, storage.ErrNotFound
	}
	return uint64(*latest), nil
}

// scanEvents scans multiple rows into a slice of ContractEvent.
func scanEvents(rows pgx.Rows) ([]*domain.ContractEvent, error) {
	var events []*domain.ContractEvent

	for rows.Next() {
		var (
			e                                   domain.ContractEvent
			kind, txHash                        string
			auctionID, tokenID, account, amount *string
			endTime, nextStart, newDuration     *string
			block, logIndex                     int64
		)

		err := rows.Scan(
			&e.EventID, &kind, &auctionID, &tokenID, &account, &amount,
			&endTime, &nextStart, &newDuration,
			&block, &txHash, &logIndex, &e.Removed, &e.ObservedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan contract event row: %w", err)
		}

		e.Kind = domain.EventKind(kind)
		e.AuctionID = textBig(auctionID)
		e.TokenID = textBig(tokenID)
		e.Account = textAddress(account)
		e.Amount = textBig(amount)
		e.EndTime = textBig(endTime)
		e.NextAuctionStartTime = textBig(nextStart)
		e.NewDuration = textBig(newDuration)
		e.BlockNumber = uint64(block)
		e.TxHash = common.HexToHash(txHash)
		e.LogIndex = uint(logIndex)

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contract event rows: %w", err)
	}
	return events, nil
}

func bigText(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func textBig(s *string) *big.Int {
	if s == nil {
		return nil
	}
	v, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return nil
	}
	return v
}

func addressText(a *common.Address) *string {
	if a == nil {
		return nil
	}
	s := strings.ToLower(a.Hex())
	return &s
}

func textAddress(s *string) *common.Address {
	if s == nil {
		return nil
	}
	a := common.HexToAddress(*s)
	return &a
}

func observeQuery(op string, start time.Time, err *error) {
	observability.RecordDBQuery("postgres", op, time.Since(start).Seconds(), *err)
}
