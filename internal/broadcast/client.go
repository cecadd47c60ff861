package broadcast

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dApp is served from its own origin.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("Failed to upgrade connection: %v", err)
		return
	}

	c := &Client{
		ID:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
	}

	welcome, _ := json.Marshal(Message{Type: TypeConnected, ClientID: c.ID})
	c.send <- welcome

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// writePump owns writes to the connection and closes it when the hub
// closes the send queue.
func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client input and unregisters on disconnect.
func (h *Hub) readPump(c *Client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Printf("Client %s read error: %v", c.ID, err)
			}
			return
		}
	}
}
