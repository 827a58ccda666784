package relay

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mockmate-app/mockmate-live/internal/signaling"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Enough for a non-trickle SDP
	// with all candidates embedded.
	maxMessageSize = 64 * 1024
)

// Client wraps a single websocket connection from a participant.
type Client struct {
	// ID is the relay-assigned opaque connection identifier. Clients learn it
	// from the "connected" hello and use it as chat author and signal sender id.
	ID string

	Hub  *Hub
	Conn *websocket.Conn

	// Room is the code of the room this connection belongs to, empty until a
	// join event arrives. Only the hub goroutine touches it.
	Room string

	// Send is the buffered outbound queue drained by WritePump.
	Send chan *signaling.Message
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The relay runs ReadPump in a per-connection goroutine; all reads happen
// here so there is at most one reader per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg signaling.Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("relay read error", "conn", c.ID, "err", err)
			}
			break
		}

		c.Hub.Inbound <- &inbound{msg: &msg, from: c}
	}
}

// WritePump pumps messages from the hub to the websocket connection and keeps
// the connection alive with periodic pings. All writes happen here.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				slog.Debug("relay write error", "conn", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
