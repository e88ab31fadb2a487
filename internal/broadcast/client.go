package broadcast

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
	sendBufferSize = 64
)

// Client is one websocket viewer attached to a game.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	gameID uuid.UUID
	send   chan []byte

	// refresh is invoked when the viewer asks for a fresh snapshot.
	refresh func(*Client)

	logger *slog.Logger
}

// NewClient wraps an upgraded connection. refresh may be nil.
func NewClient(hub *Hub, conn *websocket.Conn, gameID uuid.UUID, refresh func(*Client), logger *slog.Logger) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		gameID:  gameID,
		send:    make(chan []byte, sendBufferSize),
		refresh: refresh,
		logger:  logger,
	}
}

// GameID reports which game this viewer watches.
func (c *Client) GameID() uuid.UUID {
	return c.gameID
}

// Send queues a payload for the viewer, blocking until accepted or the
// client is gone.
func (c *Client) Send(payload []byte) {
	defer func() { recover() }()
	c.send <- payload
}

// TrySend queues a payload without blocking. It reports false when the
// viewer's buffer is full, which the hub treats as a slow client.
func (c *Client) TrySend(payload []byte) bool {
	ok := true
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- payload:
	default:
		ok = false
	}
	return ok
}

// SendJSON marshals v and queues it for the viewer.
func (c *Client) SendJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("marshal broadcast message", "error", err)
		return
	}
	c.Send(payload)
}

// ReadPump consumes viewer messages until the connection drops. Viewers may
// send {"type":"ping"} for an application-level pong and {"type":"refresh"}
// to get the snapshot again. Run it in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("viewer read error", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.SendJSON(ErrorMessage{Type: TypeError, Message: "invalid message"})
			continue
		}
		switch msg.Type {
		case "ping":
			c.SendJSON(PongMessage{Type: TypePong})
		case "refresh":
			if c.refresh != nil {
				c.refresh(c)
			}
		default:
			c.SendJSON(ErrorMessage{Type: TypeError, Message: "unknown message type"})
		}
	}
}

// WritePump drains the send buffer to the socket and keeps the connection
// alive with protocol pings. Run it in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
