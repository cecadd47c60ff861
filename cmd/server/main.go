// Package main runs the auction relay server:
//   - Read proxy over the auction contract, behind a snapshot cache
//   - Event subscription (websocket or eth_getLogs polling) feeding cache
//     invalidation, the websocket broadcast, the journal and the relays
//   - HTTP API, /ws, /health, /status and /metrics
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
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"auction-relay/internal/broadcast"
	"auction-relay/internal/chain"
	"auction-relay/internal/config"
	"auction-relay/internal/contract"
	"auction-relay/internal/domain"
	"auction-relay/internal/events"
	"auction-relay/internal/httpapi"
	"auction-relay/internal/idhash"
	"auction-relay/internal/metadata"
	"auction-relay/internal/observability"
	"auction-relay/internal/proxy"
	"auction-relay/internal/refresh"
	"auction-relay/internal/relay"
)

const (
	shutdownTimeout = 30 * time.Second
	pollConsumer    = "auction-relay-poll"
)

// Server holds all components of the relay.
type Server struct {
	cfg    *config.Config
	stores *allStores
	logger *log.Logger

	auction *contract.Auction
	proxy   *proxy.Proxy
	hub     *broadcast.Hub
	relays  *relay.Multi

	// State
	mu           sync.Mutex
	startedAt    time.Time
	eventSource  string
	highestBlock uint64
	dispatched   atomic.Int64
}

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if err := config.LoadEnvFile(); err != nil {
		logger.Fatalf("Failed to load .env: %v", err)
	}
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server := &Server{
		cfg:    cfg,
		stores: stores,
		logger: logger,
	}

	// Channel to signal completion
	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(shutdownTimeout):
			logger.Printf("Graceful shutdown timed out after %v, forcing exit", shutdownTimeout)
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// Run wires the components and blocks until ctx is cancelled or one of
// them fails.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting auction relay...")
	s.startedAt = time.Now()

	rpc := chain.NewHTTPClient(s.cfg.RPCURL, chain.WithTimeout(s.cfg.RPCTimeout))

	auction, err := contract.New(rpc, s.cfg.Contract())
	if err != nil {
		return fmt.Errorf("bind contract: %w", err)
	}
	s.auction = auction

	cache := refresh.NewCache(refresh.Options{
		TTL:    s.cfg.SnapshotTTL,
		Logger: log.New(os.Stdout, "[cache] ", log.LstdFlags),
	})
	s.proxy = proxy.New(auction, rpc, proxy.Options{
		Logger: log.New(os.Stdout, "[proxy] ", log.LstdFlags|log.Lshortfile),
		Cache:  cache,
		Metadata: metadata.NewFetcher(metadata.FetcherOptions{
			Gateway: s.cfg.IPFSGateway,
			Logger:  log.New(os.Stdout, "[metadata] ", log.LstdFlags),
		}),
		Journal:       s.stores.events,
		Bids:          s.stores.bids,
		RestInterval:  int64(s.cfg.RestInterval),
		NFTBaseURI:    s.cfg.NFTBaseURI,
		PublicBaseURL: s.cfg.PublicBaseURL,
		Rules:         s.cfg.Rules(),
	})

	s.hub = broadcast.NewHub(broadcast.Options{
		Logger: log.New(os.Stdout, "[broadcast] ", log.LstdFlags|log.Lshortfile),
	})

	relays, err := s.createRelays(ctx)
	if err != nil {
		return err
	}
	s.relays = relays
	defer relays.Close()

	dispatcher := s.createDispatcher()

	sources, closeSources, err := s.createSources(ctx, rpc, dispatcher)
	if err != nil {
		return err
	}
	defer closeSources()

	errCh := make(chan error, 3)

	go s.hub.Run(ctx)

	go func() {
		err := dispatcher.Run(ctx, sources...)
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("dispatcher: %w", err)
		}
	}()

	go s.runPollTicker(ctx)

	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		s.logger.Printf("Starting HTTP server on %s", s.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		s.logger.Printf("HTTP shutdown: %v", serr)
	}
	return err
}

// createDispatcher registers the event consumers: the journal, cache
// invalidation with websocket notification, the relays and the status
// counters.
func (s *Server) createDispatcher() *events.Dispatcher {
	dispatcher := events.NewDispatcher(events.DispatcherOptions{
		Decoder: s.auction,
		Logger:  log.New(os.Stdout, "[events] ", log.LstdFlags|log.Lshortfile),
	})

	journal := events.NewJournal(events.JournalOptions{
		Events: s.stores.events,
		Bids:   s.stores.bids,
		Logger: log.New(os.Stdout, "[journal] ", log.LstdFlags|log.Lshortfile),
	})

	consumers := events.Consumers{
		Journal:     journal,
		Invalidator: s.proxy,
		Notifiers:   []events.Notifier{s.hub},
		Logger:      log.New(os.Stdout, "[relay] ", log.LstdFlags),
	}
	if s.relays.Len() > 0 {
		consumers.Publisher = s.relays
	}
	consumers.Register(dispatcher)

	dispatcher.OnAny(func(ctx context.Context, e *domain.ContractEvent) {
		s.dispatched.Add(1)
		s.observeBlock(e.BlockNumber)
	})
	dispatcher.On(domain.EventAuctionSettled, func(ctx context.Context, e *domain.ContractEvent) {
		if e.Account != nil {
			s.logger.Printf("Auction %s settled, winner %s", e.AuctionID, e.Account.Hex())
		}
	})

	return dispatcher
}

// createSources selects the websocket subscription when a WS endpoint is
// configured and eth_getLogs polling otherwise. The returned func closes
// any opened connection.
func (s *Server) createSources(ctx context.Context, rpc chain.RPCClient, dispatcher *events.Dispatcher) ([]events.Source, func(), error) {
	filter := s.auction.LogFilter()

	if s.cfg.WSRPCURL != "" {
		// Logs emitted while the socket is down are replayed from the
		// last seen block, so start from the head rather than from nothing.
		if head, err := rpc.BlockNumber(ctx); err != nil {
			s.logger.Printf("Read head block: %v", err)
		} else {
			s.observeBlock(head)
		}

		resyncer := events.NewResyncer(events.ResyncOptions{
			Client:     rpc,
			Filter:     filter,
			Dispatcher: dispatcher,
			LastBlock:  s.lastBlock,
			Reset:      s.resetReaders,
			Logger:     log.New(os.Stdout, "[resync] ", log.LstdFlags|log.Lshortfile),
		})

		wsConfig := chain.DefaultWSConfig()
		wsConfig.Logger = log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lshortfile)
		wsConfig.OnReconnect = func() {
			go func() {
				if _, err := resyncer.Resync(ctx); err != nil {
					s.logger.Printf("Resync after reconnect: %v", err)
				}
			}()
		}

		ws, err := chain.NewWSClient(ctx, s.cfg.WSRPCURL, &wsConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("create websocket client: %w", err)
		}
		s.setEventSource("ws")
		s.logger.Printf("Subscribing to contract logs over %s", s.cfg.WSRPCURL)
		return []events.Source{events.NewWSSource(ws, filter)}, func() { ws.Close() }, nil
	}

	s.setEventSource("poll")
	s.logger.Printf("No WS_RPC_URL, polling eth_getLogs every %v", s.cfg.PollInterval)
	poll := events.NewPollSource(events.PollOptions{
		Client:       rpc,
		Filter:       filter,
		Cursors:      s.stores.cursors,
		SubscriberID: idhash.SubscriberID(pollConsumer, s.auction.Address()),
		StartBlock:   s.cfg.StartBlock,
		Interval:     s.cfg.PollInterval,
		Logger:       log.New(os.Stdout, "[poll] ", log.LstdFlags|log.Lshortfile),
	})
	return []events.Source{poll}, func() {}, nil
}

// createRelays connects the configured Redis and NATS publishers.
func (s *Server) createRelays(ctx context.Context) (*relay.Multi, error) {
	var pubs []relay.Publisher

	if s.cfg.RedisAddr != "" {
		rp, err := relay.NewRedisPublisher(ctx, relay.RedisOptions{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("redis relay: %w", err)
		}
		s.logger.Printf("Relaying events to redis %s", s.cfg.RedisAddr)
		pubs = append(pubs, rp)
	}

	if s.cfg.NATSURL != "" {
		np, err := relay.NewNATSPublisher(s.cfg.NATSURL, log.New(os.Stdout, "[nats] ", log.LstdFlags))
		if err != nil {
			for _, p := range pubs {
				p.Close()
			}
			return nil, fmt.Errorf("nats relay: %w", err)
		}
		s.logger.Printf("Relaying events to nats %s", s.cfg.NATSURL)
		pubs = append(pubs, np)
	}

	return relay.NewMulti(log.New(os.Stdout, "[relay] ", log.LstdFlags), pubs...), nil
}

// observeBlock raises the highest seen block to n.
func (s *Server) observeBlock(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > s.highestBlock {
		s.highestBlock = n
	}
}

func (s *Server) lastBlock() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highestBlock
}

// resetReaders drops every cached document and tells clients to refetch
// all of them.
func (s *Server) resetReaders() {
	s.hub.Invalidate(s.proxy.Reset()...)
}

// runPollTicker invalidates the auction snapshot on every poll interval,
// so countdown-driven phase changes show up without a contract event. It
// also prunes expired cache entries.
func (s *Server) runPollTicker(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.proxy.Cache().Invalidate(proxy.EndpointAuctionState)
			observability.RecordInvalidation("poll")
			s.hub.Invalidate(proxy.EndpointAuctionState)
			if n := s.proxy.Cache().Prune(); n > 0 {
				s.logger.Printf("Pruned %d expired cache entries", n)
			}
		}
	}
}

func (s *Server) setEventSource(name string) {
	s.mu.Lock()
	s.eventSource = name
	s.mu.Unlock()
}

func (s *Server) routes() http.Handler {
	h := httpapi.NewHandler(httpapi.Options{
		Reader:    s.proxy,
		WebSocket: s.hub,
		Status:    s.status,
		Logger:    log.New(os.Stdout, "[http] ", log.LstdFlags),
	})
	return h.Routes()
}

// status builds the /status document.
func (s *Server) status() httpapi.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return httpapi.Status{
		Status:                  "running",
		Uptime:                  time.Since(s.startedAt).Round(time.Second).String(),
		StartedAt:               s.startedAt,
		Contract:                s.auction.Address().Hex(),
		EventSource:             s.eventSource,
		HighestBlock:            s.highestBlock,
		EventsDispatched:        s.dispatched.Load(),
		BroadcastClients:        s.hub.ClientCount(),
		JournalEnabled:          s.stores.events != nil,
		RelayBackends:           s.relays.Len(),
		WalletConnectConfigured: s.cfg.WalletConnectProjectID != "",
	}
}
