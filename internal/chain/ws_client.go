package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/websocket"

	"auction-relay/internal/observability"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout bounds the wait for an eth_subscribe confirmation.
	SubscribeTimeout time.Duration
	// OnReconnect runs after a reconnect once subscriptions are restored.
	// Logs emitted while disconnected are not replayed.
	OnReconnect func()
	Logger      *log.Logger
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

// subscribeResult carries an eth_subscribe response to the waiting caller.
type subscribeResult struct {
	id  string
	err error
}

// WSClientImpl implements WSClient using gorilla/websocket.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig
	logger   *log.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to channel
	subs   map[string]chan types.Log
	subsMu sync.RWMutex

	// activeFilters stores filters for resubscription after reconnect
	activeFilters   map[string]LogFilter
	activeFiltersMu sync.RWMutex

	// pendingSubs maps request ID to channel waiting for subscription ID
	pendingSubs   map[uint64]chan subscribeResult
	pendingSubsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSClientImpl, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.SubscribeTimeout == 0 {
		cfg.SubscribeTimeout = 30 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &WSClientImpl{
		endpoint:      endpoint,
		config:        cfg,
		logger:        logger,
		subs:          make(map[string]chan types.Log),
		activeFilters: make(map[string]LogFilter),
		pendingSubs:   make(map[uint64]chan subscribeResult),
		done:          make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes WebSocket connection.
func (c *WSClientImpl) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// SubscribeLogs subscribes to contract logs matching the filter.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, filter LogFilter) (<-chan types.Log, error) {
	subID, err := c.subscribeLogsInternal(ctx, filter)
	if err != nil {
		return nil, err
	}

	ch := make(chan types.Log, 1024)
	c.subsMu.Lock()
	c.subs[subID] = ch
	c.subsMu.Unlock()

	c.activeFiltersMu.Lock()
	c.activeFilters[subID] = filter
	c.activeFiltersMu.Unlock()

	return ch, nil
}

// Close closes the WebSocket connection.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()

	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.pendingSubsMu.Lock()
	for id := range c.pendingSubs {
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()

	return nil
}

// readLoop reads messages from WebSocket and dispatches to subscribers.
func (c *WSClientImpl) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				c.logger.Printf("connection lost, reconnecting in %v: %v", reconnectDelay, err)
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *WSClientImpl) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		c.logger.Printf("reconnect failed: %v", err)
		return
	}

	c.resubscribeAll()

	if c.config.OnReconnect != nil {
		c.config.OnReconnect()
	}
}

// resubscribeAll resubscribes to all active filters after reconnect.
func (c *WSClientImpl) resubscribeAll() {
	c.activeFiltersMu.RLock()
	filters := make(map[string]LogFilter, len(c.activeFilters))
	for id, f := range c.activeFilters {
		filters[id] = f
	}
	c.activeFiltersMu.RUnlock()

	for oldSubID, filter := range filters {
		c.subsMu.RLock()
		ch := c.subs[oldSubID]
		c.subsMu.RUnlock()
		if ch == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newSubID, err := c.subscribeLogsInternal(ctx, filter)
		cancel()

		if err != nil {
			// Keep old mapping; the next reconnect tries again
			c.logger.Printf("resubscribe %s failed: %v", oldSubID, err)
			continue
		}

		c.subsMu.Lock()
		delete(c.subs, oldSubID)
		c.subs[newSubID] = ch
		c.subsMu.Unlock()

		c.activeFiltersMu.Lock()
		delete(c.activeFilters, oldSubID)
		c.activeFilters[newSubID] = filter
		c.activeFiltersMu.Unlock()
	}
}

// subscribeLogsInternal sends eth_subscribe and waits for the subscription ID
// without registering a channel.
func (c *WSClientImpl) subscribeLogsInternal(ctx context.Context, filter LogFilter) (string, error) {
	if c.closed.Load() {
		return "", fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "eth_subscribe",
		Params:  []interface{}{"logs", subscriptionArg(filter)},
	}

	confirmCh := make(chan subscribeResult, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()

	dropPending := func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
	}

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		dropPending()
		return "", fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		dropPending()
		return "", fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case res := <-confirmCh:
		if res.err != nil {
			return "", fmt.Errorf("subscribe: %w", res.err)
		}
		return res.id, nil
	case <-time.After(c.config.SubscribeTimeout):
		dropPending()
		return "", fmt.Errorf("subscription timeout after %v", c.config.SubscribeTimeout)
	case <-c.done:
		return "", fmt.Errorf("client closed")
	case <-ctx.Done():
		dropPending()
		return "", ctx.Err()
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClientImpl) handleMessage(message []byte) {
	start := time.Now()
	defer func() {
		observability.RecordWSMessage(time.Since(start).Seconds())
	}()

	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Printf("malformed message: %v", err)
		return
	}

	if msg.Method == "eth_subscription" {
		c.handleLogNotification(msg.Params)
		return
	}

	if msg.ID != nil {
		c.handleSubscribeResponse(*msg.ID, &msg)
	}
}

// handleSubscribeResponse delivers a subscription confirmation or error.
func (c *WSClientImpl) handleSubscribeResponse(id uint64, msg *wsMessage) {
	c.pendingSubsMu.Lock()
	ch, ok := c.pendingSubs[id]
	if ok {
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()

	if !ok {
		return
	}

	var res subscribeResult
	if msg.Error != nil {
		res.err = msg.Error
	} else if err := json.Unmarshal(msg.Result, &res.id); err != nil || res.id == "" {
		res.err = fmt.Errorf("unexpected subscription result %s", string(msg.Result))
	}

	select {
	case ch <- res:
	default:
	}
}

// handleLogNotification dispatches a log to its subscriber.
func (c *WSClientImpl) handleLogNotification(params *wsNotificationParams) {
	if params == nil {
		return
	}

	var entry types.Log
	if err := json.Unmarshal(params.Result, &entry); err != nil {
		c.logger.Printf("decode log notification: %v", err)
		return
	}

	c.subsMu.RLock()
	ch, ok := c.subs[params.Subscription]
	c.subsMu.RUnlock()

	if ok {
		// Block until we can send - never drop events
		select {
		case ch <- entry:
		case <-c.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *WSClientImpl) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// A dead connection is picked up by the reader
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// wsMessage covers both responses (ID set) and notifications (Method set).
type wsMessage struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      *uint64               `json:"id,omitempty"`
	Method  string                `json:"method,omitempty"`
	Result  json.RawMessage       `json:"result,omitempty"`
	Error   *RPCError             `json:"error,omitempty"`
	Params  *wsNotificationParams `json:"params,omitempty"`
}

type wsNotificationParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}
