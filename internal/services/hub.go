package services

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// BoardUpdate is the event pushed to websocket subscribers after a refresh.
type BoardUpdate struct {
	Type        string    `json:"type"`
	Projections int       `json:"projections"`
	Degraded    bool      `json:"degraded"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// WSClient is one websocket subscriber. Send is drained by the connection's
// write pump; slow clients are disconnected rather than blocking the hub.
type WSClient struct {
	ID   string
	Send chan BoardUpdate
}

// WebSocketHub fans board updates out to connected clients.
type WebSocketHub struct {
	clients   map[*WSClient]bool
	clientsMu sync.RWMutex

	broadcast  chan BoardUpdate
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{}
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan BoardUpdate, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. Call it in its own goroutine.
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.done:
			h.shutdown()
			return

		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			h.clientsMu.Unlock()
			logrus.Debugf("WebSocket client %s connected (total: %d)", client.ID, h.ClientCount())

		case client := <-h.unregister:
			h.removeClient(client)

		case update := <-h.broadcast:
			h.broadcastUpdate(update)
		}
	}
}

// Stop shuts down the hub and closes all client channels.
func (h *WebSocketHub) Stop() {
	close(h.done)
}

func (h *WebSocketHub) Register(client *WSClient) {
	h.register <- client
}

func (h *WebSocketHub) Unregister(client *WSClient) {
	h.unregister <- client
}

// Broadcast queues an update for all clients. Drops the update if the
// buffer is full rather than blocking the caller.
func (h *WebSocketHub) Broadcast(update BoardUpdate) {
	select {
	case h.broadcast <- update:
	default:
		logrus.Warn("WebSocket broadcast buffer full, dropping update")
	}
}

func (h *WebSocketHub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHub) removeClient(client *WSClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
		logrus.Debugf("WebSocket client %s disconnected (total: %d)", client.ID, len(h.clients))
	}
}

func (h *WebSocketHub) broadcastUpdate(update BoardUpdate) {
	h.clientsMu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		select {
		case c.Send <- update:
		default:
			// Client buffer full - too slow, disconnect it
			logrus.Warnf("WebSocket client %s buffer full, disconnecting", c.ID)
			go h.Unregister(c)
		}
	}
}

func (h *WebSocketHub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for c := range h.clients {
		close(c.Send)
		delete(h.clients, c)
	}
}
