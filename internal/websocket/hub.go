package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"gridexport/internal/infrastructure"
	"gridexport/pkg/contracts/events"
)

// broadcastBuffer bounds the hub's outbound queue. Notifications beyond it
// are dropped so exports never wait on WebSocket clients.
const broadcastBuffer = 64

type outbound struct {
	msgType events.MessageType
	data    []byte
}

// Hub maintains the set of connected clients and fans export events out to
// them. It implements exporter.Notifier.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	stopped bool
	quit    chan struct{}
	done    chan struct{}

	clock   clockwork.Clock
	metrics *Metrics
	logger  *slog.Logger
}

// NewHub creates a hub. metrics and clock may be nil.
func NewHub(logger *slog.Logger, metrics *Metrics, clock clockwork.Clock) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		clock:      clock,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start runs the hub loop in its own goroutine. It is a no-op when the hub
// is already running or was stopped.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running || h.stopped {
		return
	}
	h.running = true
	go h.run()
}

// Stop ends the hub loop and disconnects every client. A stopped hub cannot
// be restarted.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	wasRunning := h.running
	h.running = false
	close(h.quit)
	h.mu.Unlock()

	if wasRunning {
		<-h.done
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.logger.Info("hub stopped")
}

// Register adds a client. It returns immediately once the hub is stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client and closes its send queue
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NotifyExport broadcasts an export event. It never blocks: when the queue
// is full the event is dropped and logged.
func (h *Hub) NotifyExport(ctx context.Context, event events.ExportEvent) {
	h.Broadcast(ctx, events.MessageTypeExportStatus, event)
}

// Broadcast queues a message for every connected client without blocking
func (h *Hub) Broadcast(ctx context.Context, msgType events.MessageType, data interface{}) {
	payload, err := h.encode(ctx, msgType, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal message",
			slog.String("message_type", string(msgType)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- outbound{msgType: msgType, data: payload}:
	default:
		h.metrics.recordDropped(ctx, "hub")
		h.logger.WarnContext(ctx, "broadcast queue full, message dropped",
			slog.String("message_type", string(msgType)))
	}
}

func (h *Hub) encode(ctx context.Context, msgType events.MessageType, data interface{}) ([]byte, error) {
	return json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			Type:      msgType,
			Timestamp: h.clock.Now(),
			TraceID:   infrastructure.GetTraceID(ctx),
		},
		Data: data,
	})
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "closed")

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.recordConnect(ctx)
	h.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("total_clients", count))

	hello, err := h.encode(ctx, events.MessageTypeConnect, map[string]string{
		"status":    "connected",
		"client_id": client.id,
	})
	if err != nil {
		return
	}
	select {
	case client.send <- hello:
	default:
		h.logger.WarnContext(ctx, "client buffer full, connection message dropped",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.recordDisconnect(ctx, h.clock.Since(client.connectedAt), reason)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Int("total_clients", count))
}

// fanOut delivers msg to every client. A client whose queue is full is
// disconnected rather than waited on.
func (h *Hub) fanOut(msg outbound) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	ctx := context.Background()
	delivered := 0
	for _, client := range clients {
		select {
		case client.send <- msg.data:
			delivered++
		default:
			h.metrics.recordDropped(ctx, "client")
			h.removeClient(client, "slow_consumer")
		}
	}
	h.metrics.recordSent(ctx, string(msg.msgType), delivered)

	h.logger.Debug("message broadcast",
		slog.String("message_type", string(msg.msgType)),
		slog.Int("delivered", delivered),
		slog.Int("clients", len(clients)))
}
