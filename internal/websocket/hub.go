package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ragchat-client/internal/entity"
	"ragchat-client/internal/pkg/logger"

	"github.com/google/uuid"
)

// Frame is what every connected renderer receives.
type Frame struct {
	Type string                 `json:"type"`
	Data entity.SessionSnapshot `json:"data"`
}

func EncodeFrame(kind string, snap entity.SessionSnapshot) ([]byte, error) {
	return json.Marshal(Frame{Type: kind, Data: snap})
}

// Hub fans snapshots out to every connected renderer. Snapshots can reach it
// out of order, so anything not newer than the last broadcast is dropped.
type Hub struct {
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu          sync.RWMutex
	lastVersion uint64

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID]*Client),
		logger:     log,
	}
}

// Run serves register and unregister requests until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.Id] = client
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"client_id": client.Id.String()})

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"client_id": client.Id.String()})

		case <-ctx.Done():
			h.mu.Lock()
			for _, client := range h.clients {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// BroadcastSnapshot sends a snapshot to every client. Slow clients whose
// buffer is full are disconnected.
func (h *Hub) BroadcastSnapshot(kind string, snap entity.SessionSnapshot) {
	data, err := EncodeFrame(kind, snap)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode snapshot", map[string]interface{}{"error": err})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if snap.Version <= h.lastVersion {
		h.logger.Debug("Hub", "Dropping out of order snapshot", map[string]interface{}{
			"version": snap.Version,
			"last":    h.lastVersion,
		})
		return
	}
	h.lastVersion = snap.Version

	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, disconnecting", map[string]interface{}{"client_id": client.Id.String()})
			h.removeLocked(client)
		}
	}
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// removeLocked closes a client's Send channel once, however many paths try.
func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client.Id]; !ok {
		return
	}
	delete(h.clients, client.Id)
	close(client.Send)
}
