package events

import (
	"context"
	"log"
	"time"

	"auction-relay/internal/domain"
)

// publishTimeout bounds a single relay publish so a slow broker cannot
// hold up dispatch.
const publishTimeout = 5 * time.Second

// Invalidator drops the cache keys an event affects and returns them.
type Invalidator interface {
	Invalidate(e *domain.ContractEvent) []string
}

// Notifier is told about an event after its keys are invalidated.
type Notifier interface {
	Notify(e *domain.ContractEvent, keys []string)
}

// Publisher forwards events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, e *domain.ContractEvent) error
}

// Consumers are the standard event consumers of a relay process.
type Consumers struct {
	Journal     *Journal
	Invalidator Invalidator
	Notifiers   []Notifier
	// Publisher is optional.
	Publisher Publisher
	Logger    *log.Logger
}

// Register adds the consumers to d as generic handlers: the journal first,
// then invalidation with notification, then the publisher. A notified
// client refetches immediately, so journal-backed reads must already see
// the event when the notification goes out.
func (c Consumers) Register(d *Dispatcher) {
	if c.Journal != nil {
		d.OnAny(c.Journal.Handle)
	}
	if c.Invalidator != nil {
		d.OnAny(InvalidateHandler(c.Invalidator, c.Notifiers...))
	}
	if c.Publisher != nil {
		d.OnAny(PublishHandler(c.Publisher, c.Logger))
	}
}

// InvalidateHandler invalidates the event's keys, then notifies each
// notifier with the keys that were dropped.
func InvalidateHandler(inv Invalidator, notifiers ...Notifier) Handler {
	return func(_ context.Context, e *domain.ContractEvent) {
		keys := inv.Invalidate(e)
		for _, n := range notifiers {
			n.Notify(e, keys)
		}
	}
}

// PublishHandler forwards events to p. Failures are logged.
func PublishHandler(p Publisher, logger *log.Logger) Handler {
	if logger == nil {
		logger = log.Default()
	}
	return func(ctx context.Context, e *domain.ContractEvent) {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, e); err != nil {
			logger.Printf("Publish %s %s: %v", e.Kind, e.EventID, err)
		}
	}
}
