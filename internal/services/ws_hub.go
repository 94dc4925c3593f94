package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Resources announced over the live-update socket
const (
	ResourceTours     = "tours"
	ResourceGallery   = "gallery"
	ResourceCountdown = "countdown"
)

// Notifier is told whenever stored content changes
type Notifier interface {
	Broadcast(resource string)
}

type nopNotifier struct{}

func (nopNotifier) Broadcast(string) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string `json:"type"`
	Resource  string `json:"resource,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Message   string `json:"message,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages the live-update WebSocket connections
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsClient
	onChange    func(clients int)
}

// NewWSHub creates a new WebSocket hub. onChange, if set, receives the client count after
// every register or unregister.
func NewWSHub(onChange func(clients int)) *WSHub {
	return &WSHub{
		connections: make(map[string]*wsClient),
		onChange:    onChange,
	}
}

// Register adds a connection under clientID
func (h *WSHub) Register(clientID string, conn *websocket.Conn) {
	h.mu.Lock()
	if existing, ok := h.connections[clientID]; ok {
		existing.conn.Close()
	}
	h.connections[clientID] = &wsClient{conn: conn}
	count := len(h.connections)
	h.mu.Unlock()

	log.Debug().Str("client_id", clientID).Msg("WebSocket connection registered")
	h.changed(count)
}

// Unregister closes and removes a connection
func (h *WSHub) Unregister(clientID string) {
	h.mu.Lock()
	client, ok := h.connections[clientID]
	if ok {
		client.conn.Close()
		delete(h.connections, clientID)
	}
	count := len(h.connections)
	h.mu.Unlock()

	if ok {
		log.Debug().Str("client_id", clientID).Msg("WebSocket connection unregistered")
		h.changed(count)
	}
}

func (h *WSHub) changed(count int) {
	if h.onChange != nil {
		h.onChange(count)
	}
}

// Count returns the number of connected clients
func (h *WSHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SendTo sends a message to one client
func (h *WSHub) SendTo(clientID string, message WSMessage) error {
	h.mu.RLock()
	client, ok := h.connections[clientID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("client %s is not connected", clientID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := client.write(data); err != nil {
		h.Unregister(clientID)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// Broadcast tells every client that resource changed
func (h *WSHub) Broadcast(resource string) {
	message := WSMessage{
		Type:      "content_updated",
		Resource:  resource,
		Timestamp: time.Now().UnixMilli(),
	}

	h.mu.RLock()
	ids := make([]string, 0, len(h.connections))
	for id := range h.connections {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		if err := h.SendTo(id, message); err != nil {
			log.Warn().Err(err).Str("client_id", id).Msg("Failed to deliver content update")
		}
	}
}

// Close disconnects every client
func (h *WSHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.connections {
		client.conn.Close()
		delete(h.connections, id)
	}
}
