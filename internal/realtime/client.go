package realtime

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write one message to the peer.
	writeWait = 10 * time.Second

	// Clients only send control frames; anything bigger is a misbehaving peer.
	maxMessageSize = 4 * 1024

	defaultPingInterval = 54 * time.Second
)

// Client is one websocket connection. The push channel is one-way, so the
// read pump only exists to process pongs and notice disconnects.
type Client struct {
	id       string
	username string // empty for anonymous connections
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	logger   *slog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, username string) *Client {
	id := uuid.New().String()
	return &Client{
		id:       id,
		username: username,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, hub.cfg.SendBuffer),
		logger:   hub.logger.With(slog.String("connection_id", id)),
	}
}

// pongWait is derived from the ping interval so a healthy peer always
// answers before the read deadline.
func (c *Client) pongWait() time.Duration {
	return c.hub.cfg.PingInterval * 10 / 9
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("push client read error", slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("push client write failed", slog.Any("error", err))
				return
			}

			// Drain whatever queued up while we were writing.
			n := len(c.send)
			for i := 0; i < n; i++ {
				queued, ok := <-c.send
				if !ok {
					_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, queued); err != nil {
					c.logger.Debug("push client write failed", slog.Any("error", err))
					return
				}
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
