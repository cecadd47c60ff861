// Package broadcast fans contract events and cache invalidations out to
// websocket clients.
package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"auction-relay/internal/domain"
	"auction-relay/internal/events"
	"auction-relay/internal/observability"
)

// Message types.
const (
	TypeConnected  = "connected"
	TypeEvent      = "event"
	TypeInvalidate = "invalidate"
)

const (
	defaultSendBuffer   = 256
	defaultPingInterval = 54 * time.Second
	writeWait           = 10 * time.Second
	pongWait            = 60 * time.Second
)

// Message is what clients receive.
type Message struct {
	Type     string          `json:"type"`
	ClientID string          `json:"clientId,omitempty"`
	Event    *events.Payload `json:"event,omitempty"`
	Keys     []string        `json:"keys,omitempty"`
}

// Options configures a Hub.
type Options struct {
	// SendBuffer is the per-client queue length. A client whose queue is
	// full when a message arrives is dropped.
	SendBuffer   int
	PingInterval time.Duration
	Logger       *log.Logger
}

// Hub tracks connected clients. The client set is owned by Run.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	clients map[*Client]struct{}
	count   atomic.Int64

	sendBuffer   int
	pingInterval time.Duration
	logger       *log.Logger
}

// NewHub creates a new Hub. Call Run before serving clients.
func NewHub(opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Hub{
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan []byte, defaultSendBuffer),
		done:         make(chan struct{}),
		clients:      make(map[*Client]struct{}),
		sendBuffer:   opts.SendBuffer,
		pingInterval: opts.PingInterval,
		logger:       opts.Logger,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			h.logger.Println("Broadcast hub stopped")
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount()
			h.logger.Printf("Client %s connected (%d total)", c.ID, len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.remove(c)
				h.logger.Printf("Client %s disconnected (%d total)", c.ID, len(h.clients))
			}

		case payload := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- payload:
				default:
					// A slow client must not hold up the rest.
					h.remove(c)
					observability.RecordBroadcastDrop()
					h.logger.Printf("Dropped slow client %s", c.ID)
				}
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.count.Store(int64(len(h.clients)))
	observability.SetBroadcastClients(len(h.clients))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Notify broadcasts an event with the cache keys it invalidated.
func (h *Hub) Notify(e *domain.ContractEvent, keys []string) {
	p := events.NewPayload(e)
	h.publish(Message{Type: TypeEvent, Event: &p, Keys: keys})
}

// Invalidate tells clients that keys changed without an event, as after
// a poll tick or a confirmed transaction.
func (h *Hub) Invalidate(keys ...string) {
	h.publish(Message{Type: TypeInvalidate, Keys: keys})
}

func (h *Hub) publish(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Printf("Encode %s message: %v", msg.Type, err)
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.done:
	default:
		h.logger.Printf("Broadcast queue full, dropping %s message", msg.Type)
	}
}

var _ events.Notifier = (*Hub)(nil)
