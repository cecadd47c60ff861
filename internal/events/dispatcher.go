package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"auction-relay/internal/domain"
	"auction-relay/internal/observability"
)

// ErrSourcesClosed is returned by Run when every source channel has closed.
var ErrSourcesClosed = errors.New("all event sources closed")

// Handler consumes a decoded event. Handlers own their error handling;
// a failing consumer must not stop dispatch.
type Handler func(ctx context.Context, e *domain.ContractEvent)

// DispatcherOptions contains configuration for creating a Dispatcher.
type DispatcherOptions struct {
	Decoder Decoder
	Logger  *log.Logger
	// Now stamps ObservedAt. Defaults to time.Now.
	Now func() time.Time
}

// Dispatcher decodes logs and runs the handlers registered for each event
// kind, then every generic handler. Delivery is at-least-once: the same log
// may arrive twice after a reconnect or restart, and removed logs are
// delivered like any other.
type Dispatcher struct {
	decoder Decoder
	logger  *log.Logger
	now     func() time.Time

	mu      sync.RWMutex
	byKind  map[domain.EventKind][]Handler
	generic []Handler
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		decoder: opts.Decoder,
		logger:  opts.Logger,
		now:     opts.Now,
		byKind:  make(map[domain.EventKind][]Handler),
	}
}

// On registers h for events of kind.
func (d *Dispatcher) On(kind domain.EventKind, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byKind[kind] = append(d.byKind[kind], h)
}

// OnAny registers h for every event.
func (d *Dispatcher) OnAny(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generic = append(d.generic, h)
}

// HandleLog decodes l and dispatches it. Logs that do not decode are
// counted and returned as an error.
func (d *Dispatcher) HandleLog(ctx context.Context, source string, l types.Log) error {
	observability.RecordEventReceived(source)

	e, err := d.decoder.DecodeLog(l)
	if err != nil {
		observability.RecordEventError("decode")
		return fmt.Errorf("decode log %s#%d: %w", l.TxHash.Hex(), l.Index, err)
	}
	e.ObservedAt = d.now().UnixMilli()
	observability.UpdateHighestBlock(e.BlockNumber)

	d.Dispatch(ctx, e)
	return nil
}

// Dispatch runs the kind handlers for e, then the generic handlers.
func (d *Dispatcher) Dispatch(ctx context.Context, e *domain.ContractEvent) {
	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.byKind[e.Kind])+len(d.generic))
	handlers = append(handlers, d.byKind[e.Kind]...)
	handlers = append(handlers, d.generic...)
	d.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}
	observability.RecordEventDispatched(string(e.Kind), e.BlockNumber, e.ObservedAt/1000)
}

type sourcedLog struct {
	source string
	log    types.Log
}

// Run subscribes to every source and dispatches their logs one at a time.
// It blocks until ctx is cancelled or all sources close.
func (d *Dispatcher) Run(ctx context.Context, sources ...Source) error {
	if len(sources) == 0 {
		return errors.New("no event sources")
	}

	merged := make(chan sourcedLog)
	var wg sync.WaitGroup
	for _, src := range sources {
		ch, err := src.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", src.Name(), err)
		}
		d.logger.Printf("Subscribed to %s source", src.Name())

		wg.Add(1)
		go func(name string, ch <-chan types.Log) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case l, ok := <-ch:
					if !ok {
						d.logger.Printf("%s source closed", name)
						return
					}
					select {
					case merged <- sourcedLog{source: name, log: l}:
					case <-ctx.Done():
						return
					}
				}
			}
		}(src.Name(), ch)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			d.logger.Println("Dispatcher stopping...")
			return ctx.Err()
		case <-done:
			return ErrSourcesClosed
		case sl := <-merged:
			if err := d.HandleLog(ctx, sl.source, sl.log); err != nil {
				d.logger.Printf("Skipping log: %v", err)
			}
		}
	}
}
