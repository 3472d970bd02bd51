package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gridexport/internal/config"
	"gridexport/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Clients only send heartbeats
	maxMessageSize = 512

	sendBuffer = 256
)

var heartbeat = []byte(`{"type":"heartbeat"}`)

// ClientConfig controls the keep-alive of a client connection
type ClientConfig struct {
	PongWait   time.Duration
	PingPeriod time.Duration
}

// ClientConfigFrom maps the websocket section of the application config. A
// ping period that does not fit inside the pong wait is shortened to 90% of
// it.
func ClientConfigFrom(cfg config.WebSocketConfig) ClientConfig {
	cc := ClientConfig{PongWait: cfg.PongWait, PingPeriod: cfg.PingPeriod}
	if cc.PongWait <= 0 {
		cc.PongWait = config.WebSocketPongWait
	}
	if cc.PingPeriod <= 0 || cc.PingPeriod >= cc.PongWait {
		cc.PingPeriod = cc.PongWait * 9 / 10
	}
	return cc
}

// Client is a middleman between one WebSocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection
	cfg  ClientConfig

	// Buffered channel of outbound messages. Only the hub closes it.
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger
}

// NewClient creates a client for an upgraded connection
func NewClient(hub *Hub, conn Connection, traceID string, cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	id := uuid.New().String()
	return &Client{
		hub:         hub,
		conn:        conn,
		cfg:         cfg,
		send:        make(chan []byte, sendBuffer),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: hub.clock.Now(),
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
		),
	}
}

// ID returns the client identifier
func (c *Client) ID() string { return c.id }

func (c *Client) context() context.Context {
	if c.traceID == "" {
		return context.Background()
	}
	return infrastructure.WithTraceID(context.Background(), c.traceID)
}

// ReadPump consumes frames until the connection fails, then unregisters the
// client. Only heartbeats are expected from the browser.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(c.context(), "unexpected websocket close",
					slog.String("error", err.Error()))
			}
			return
		}
		if string(message) == string(heartbeat) {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
			continue
		}
		c.logger.DebugContext(c.context(), "ignoring client message", slog.Int("size", len(message)))
	}
}

// WritePump writes queued messages and pings until the hub closes the send
// queue or a write fails
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
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
				c.logger.WarnContext(c.context(), "failed to write message",
					slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "failed to send ping",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}
