package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// clientMessage is what clients may send over the socket.
type clientMessage struct {
	Type  string `json:"type"`
	JobID string `json:"job_id,omitempty"`
}

// Client is one WebSocket connection.
type Client struct {
	id     string
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded connection. userID may be empty for
// anonymous connections.
func NewClient(h *Hub, conn *websocket.Conn, userID string, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		userID: userID,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: logger.With(slog.String("component", "ws_client"), slog.String("client_id", id)),
	}
}

// Send queues a message for delivery, dropping it when the buffer is
// full or the client is already gone.
func (c *Client) Send(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("failed to marshal event", slog.String("error", err.Error()))
		return
	}
	c.trySend(data)
}

// trySend enqueues raw bytes without blocking. The closed flag keeps a
// late broadcast from hitting the channel after close.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend marks the client closed and closes its send channel. Safe
// to call more than once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump consumes client messages until the connection drops, handling
// subscribe_job and ping requests.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", slog.String("error", err.Error()))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("invalid client message", slog.String("error", err.Error()))
			continue
		}
		c.handleMessage(msg)
	}
}

// WritePump flushes queued messages to the connection and keeps it
// alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("websocket write error", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg clientMessage) {
	switch msg.Type {
	case "subscribe_job":
		jobID, err := uuid.Parse(msg.JobID)
		if err != nil {
			c.Send(map[string]string{"type": "error", "message": "invalid job_id"})
			return
		}
		c.hub.SubscribeJob(c, jobID)
		c.Send(map[string]string{"type": "subscription_confirmed", "job_id": jobID.String()})

	case "ping":
		c.Send(map[string]string{"type": "pong"})

	default:
		c.logger.Debug("unknown client message type", slog.String("type", msg.Type))
	}
}
