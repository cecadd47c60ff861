// Package relay forwards contract events to external brokers.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"auction-relay/internal/domain"
	"auction-relay/internal/events"
	"auction-relay/internal/observability"
)

// Publisher sends events to one broker.
type Publisher interface {
	// Name labels the backend in metrics.
	Name() string
	Publish(ctx context.Context, e *domain.ContractEvent) error
	Close() error
}

// Multi publishes each event to every configured backend.
type Multi struct {
	pubs   []Publisher
	logger *log.Logger
}

// NewMulti creates a Multi over pubs. Nil entries are skipped.
func NewMulti(logger *log.Logger, pubs ...Publisher) *Multi {
	if logger == nil {
		logger = log.Default()
	}
	m := &Multi{logger: logger}
	for _, p := range pubs {
		if p != nil {
			m.pubs = append(m.pubs, p)
		}
	}
	return m
}

// Len returns the number of backends.
func (m *Multi) Len() int {
	return len(m.pubs)
}

// Name returns "multi".
func (m *Multi) Name() string {
	return "multi"
}

// Publish sends e to every backend. A failing backend does not stop the
// others; their errors are joined.
func (m *Multi) Publish(ctx context.Context, e *domain.ContractEvent) error {
	var errs []error
	for _, p := range m.pubs {
		err := p.Publish(ctx, e)
		observability.RecordRelayPublish(p.Name(), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every backend.
func (m *Multi) Close() error {
	var errs []error
	for _, p := range m.pubs {
		if err := p.Close(); err != nil {
			m.logger.Printf("Close %s relay: %v", p.Name(), err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func encode(e *domain.ContractEvent) ([]byte, error) {
	payload, err := json.Marshal(events.NewPayload(e))
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return payload, nil
}

var _ events.Publisher = (*Multi)(nil)
