package relay

import (
	"context"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"auction-relay/internal/domain"
)

// NATSSubjectPrefix is followed by the event kind.
const NATSSubjectPrefix = "auction.events."

// NATSPublisher publishes events on per-kind NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to url. The client reconnects on its own.
func NewNATSPublisher(url string, logger *log.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = log.Default()
	}
	conn, err := nats.Connect(url,
		nats.Name("auction-relay"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Printf("NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// NATSSubject returns the subject for one event kind.
func NATSSubject(kind domain.EventKind) string {
	return NATSSubjectPrefix + string(kind)
}

// Name returns "nats".
func (p *NATSPublisher) Name() string {
	return "nats"
}

// Publish queues e on its kind subject. Delivery happens on the client's
// flusher goroutine.
func (p *NATSPublisher) Publish(ctx context.Context, e *domain.ContractEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := encode(e)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(NATSSubject(e.Kind), payload); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
