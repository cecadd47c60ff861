package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"math/big"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/domain"
)

func startHub(t *testing.T, opts Options) *Hub {
	t.Helper()
	opts.Logger = log.New(os.Stderr, "[broadcast-test] ", log.LstdFlags)
	h := NewHub(opts)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestHub_WelcomeAndEvent(t *testing.T) {
	h := startHub(t, Options{})
	conn := dial(t, h)

	welcome := readMessage(t, conn)
	assert.Equal(t, TypeConnected, welcome.Type)
	assert.Len(t, welcome.ClientID, 36)

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	bidder := common.HexToAddress("0x00000000000000000000000000000000000b1dde")
	h.Notify(&domain.ContractEvent{
		EventID:   "abc",
		Kind:      domain.EventBidPlaced,
		AuctionID: big.NewInt(3),
		Account:   &bidder,
		Amount:    big.NewInt(10),
	}, []string{"auction-state", "auction-history"})

	msg := readMessage(t, conn)
	assert.Equal(t, TypeEvent, msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, "BidPlaced", msg.Event.Kind)
	assert.Equal(t, "3", msg.Event.AuctionID)
	assert.Equal(t, []string{"auction-state", "auction-history"}, msg.Keys)
}

func TestHub_Invalidate(t *testing.T) {
	h := startHub(t, Options{})
	conn := dial(t, h)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Invalidate("auction-state")

	msg := readMessage(t, conn)
	assert.Equal(t, TypeInvalidate, msg.Type)
	assert.Nil(t, msg.Event)
	assert.Equal(t, []string{"auction-state"}, msg.Keys)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	h := startHub(t, Options{})
	conn := dial(t, h)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := startHub(t, Options{})

	// No write pump drains this queue.
	slow := &Client{ID: "slow", send: make(chan []byte, 1)}
	h.register <- slow
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Invalidate("a")
	h.Invalidate("b")

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	first, ok := <-slow.send
	require.True(t, ok)
	assert.Contains(t, string(first), `"keys":["a"]`)
	_, ok = <-slow.send
	assert.False(t, ok, "send queue closed on drop")
}

func TestHub_Ping(t *testing.T) {
	h := startHub(t, Options{PingInterval: 20 * time.Millisecond})
	conn := dial(t, h)

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})

	// Reading drives control frame handlers.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
}
