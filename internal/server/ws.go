package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/pointcast/internal/logging"
)

// DefaultWriteTimeout bounds a single websocket write so a stalled client
// cannot hold up the acquisition loop for long.
const DefaultWriteTimeout = 250 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventHub fans every emitted line out to websocket clients. It implements
// sink.Sink so it can sit next to the primary sink in a sink.Multi.
type EventHub struct {
	logger       *zap.Logger
	writeTimeout time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	last    string
	closed  bool
}

// NewEventHub creates an EventHub. A nil logger is replaced by a no-op logger.
func NewEventHub(logger *zap.Logger) *EventHub {
	return &EventHub{
		logger:       logging.OrNop(logger).Named("events"),
		writeTimeout: DefaultWriteTimeout,
		clients:      make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects. A new client first receives the most recent line.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(h.writeTimeout))
		conn.Close()
		return
	}
	h.clients[conn] = struct{}{}
	if h.last != "" {
		h.writeLocked(conn, h.last)
	}
	h.mu.Unlock()

	h.logger.Debug("client connected", zap.String("remote", r.RemoteAddr))

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(conn)
	h.logger.Debug("client disconnected", zap.String("remote", r.RemoteAddr))
}

// WriteLine sends line to every client. Clients that fail are dropped; the
// hub itself never reports an error so it cannot end the run.
func (h *EventHub) WriteLine(line string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = line
	for conn := range h.clients {
		h.writeLocked(conn, line)
	}
	return nil
}

func (h *EventHub) writeLocked(conn *websocket.Conn, line string) {
	conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		h.logger.Debug("dropping client", zap.Error(err))
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *EventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Last returns the most recently written line.
func (h *EventHub) Last() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Close disconnects every client and refuses new ones.
func (h *EventHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	deadline := time.Now().Add(h.writeTimeout)
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
		delete(h.clients, conn)
	}
	return nil
}
