// internal/server/hub.go
package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ReloadMessage is sent to every client after a successful rebuild.
const ReloadMessage = "reload"

// upgrader accepts any origin; the dev server only listens for a local
// browser.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub maintains the set of live reload clients and broadcasts to them.
type Hub struct {
	clients map[*websocket.Conn]bool
	logger  *zap.Logger
	metrics *Metrics
	mu      sync.Mutex
}

func NewHub(logger *zap.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	h.metrics.clientsChanged(1)
	h.logger.Debug("live reload client connected", zap.String("remote", conn.RemoteAddr().String()))
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
		h.metrics.clientsChanged(-1)
		h.logger.Debug("live reload client disconnected")
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends message to every client. Clients that cannot be written
// to are dropped.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Debug("error writing to client", zap.Error(err))
			client.Close()
			delete(h.clients, client)
			h.metrics.clientsChanged(-1)
		}
	}
}

// Reload tells every client to reload the page.
func (h *Hub) Reload() {
	h.Broadcast([]byte(ReloadMessage))
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. Clients never send anything.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	h.register(conn)
	defer h.unregister(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
