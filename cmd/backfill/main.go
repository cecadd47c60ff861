// Package main backfills the event journal and bid analytics from
// historical contract logs, either over an explicit block range or from
// the saved cursor up to the current head.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-relay/internal/chain"
	"auction-relay/internal/config"
	"auction-relay/internal/contract"
	"auction-relay/internal/events"
	"auction-relay/internal/idhash"
	"auction-relay/internal/observability"
	"auction-relay/internal/storage"
	chstore "auction-relay/internal/storage/clickhouse"
	"auction-relay/internal/storage/memory"
	"auction-relay/internal/storage/migrations"
	pgstore "auction-relay/internal/storage/postgres"
)

const backfillConsumer = "auction-relay-backfill"

func main() {
	logger := log.New(os.Stdout, "[backfill] ", log.LstdFlags|log.Lshortfile)

	if err := config.LoadEnvFile(); err != nil {
		logger.Fatalf("Failed to load .env: %v", err)
	}
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	mode := flag.String("mode", "resume", "Backfill mode: resume or range")
	fromBlock := flag.Uint64("from-block", 0, "First block (range mode, or resume without a cursor)")
	toBlock := flag.Uint64("to-block", 0, "Last block (range mode; zero means the current head)")
	blockRange := flag.Uint64("block-range", events.DefaultMaxBlockRange, "Blocks per eth_getLogs request")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}
	if cfg.PostgresDSN == "" {
		logger.Println("POSTGRES_DSN not set, backfilled events are kept in memory and discarded on exit")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := run(ctx, logger, cfg, *mode, *fromBlock, *toBlock, *blockRange)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Backfill failed: %v", err)
	}
	if result != nil {
		logger.Printf("Blocks %d-%d: %d logs, %d stored, %d duplicates, %d undecodable, %d errors in %v",
			result.FromBlock, result.ToBlock, result.LogsFetched, result.EventsStored,
			result.DuplicatesSkipped, result.DecodeErrors, result.Errors, result.Duration.Round(time.Millisecond))
	}
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config, mode string, from, to, blockRange uint64) (*events.BackfillResult, error) {
	rpc := chain.NewHTTPClient(cfg.RPCURL, chain.WithTimeout(cfg.RPCTimeout))
	auction, err := contract.New(rpc, cfg.Contract())
	if err != nil {
		return nil, fmt.Errorf("bind contract: %w", err)
	}

	var (
		eventStore  storage.EventStore  = memory.NewEventStore()
		bidStore    storage.BidStore    = memory.NewBidStore()
		cursorStore storage.CursorStore = memory.NewCursorStore()
	)

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if _, err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		eventStore = pgstore.NewEventStore(pool)
		cursorStore = pgstore.NewCursorStore(pool)
	}
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		defer conn.Close()
		bidStore = chstore.NewBidStore(conn)
	}

	backfiller := events.NewBackfiller(events.BackfillOptions{
		Client:  rpc,
		Decoder: auction,
		Filter:  auction.LogFilter(),
		Journal: events.NewJournal(events.JournalOptions{
			Events: eventStore,
			Bids:   bidStore,
			Logger: logger,
		}),
		Cursors:      cursorStore,
		SubscriberID: idhash.SubscriberID(backfillConsumer, auction.Address()),
		BlockRange:   blockRange,
		Logger:       logger,
	})

	switch mode {
	case "resume":
		return backfiller.Resume(ctx, from)
	case "range":
		if to == 0 {
			head, err := rpc.BlockNumber(ctx)
			if err != nil {
				return nil, fmt.Errorf("block number: %w", err)
			}
			to = head
		}
		return backfiller.BackfillRange(ctx, from, to)
	default:
		return nil, fmt.Errorf("unknown mode: %s", mode)
	}
}
