package main

import (
	"context"
	"fmt"
	"log"

	"auction-relay/internal/config"
	"auction-relay/internal/storage"
	chstore "auction-relay/internal/storage/clickhouse"
	"auction-relay/internal/storage/memory"
	"auction-relay/internal/storage/migrations"
	pgstore "auction-relay/internal/storage/postgres"
)

// allStores holds the storage implementations.
type allStores struct {
	events  storage.EventStore
	bids    storage.BidStore
	cursors storage.CursorStore
}

// createStores opens Postgres and ClickHouse when their DSNs are set and
// falls back to memory for each one that is not.
func createStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*allStores, func(), error) {
	stores := &allStores{
		events:  memory.NewEventStore(),
		bids:    memory.NewBidStore(),
		cursors: memory.NewCursorStore(),
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		if len(applied) > 0 {
			logger.Printf("Applied postgres migrations: %v", applied)
		}

		stores.events = pgstore.NewEventStore(pool)
		stores.cursors = pgstore.NewCursorStore(pool)
	} else {
		logger.Println("POSTGRES_DSN not set, journaling events in memory")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		stores.bids = chstore.NewBidStore(conn)
	} else {
		logger.Println("CLICKHOUSE_DSN not set, keeping bid analytics in memory")
	}

	return stores, cleanup, nil
}
