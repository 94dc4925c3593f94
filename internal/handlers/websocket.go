package handlers

import (
	"encoding/json"
	"net/http"

	"bandsite-backend/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // content is public
	},
}

// WebSocketHandler serves the live-update socket
type WebSocketHandler struct {
	hub *services.WSHub
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// HandleWebSocket handles GET /ws. Clients only listen; the server pushes content_updated events.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	clientID := uuid.New().String()
	h.hub.Register(clientID, conn)
	defer h.hub.Unregister(clientID)

	if err := h.hub.SendTo(clientID, services.WSMessage{Type: "connected"}); err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("Failed to greet WebSocket client")
		return
	}

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("client_id", clientID).Msg("WebSocket error")
			}
			return
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			h.sendError(clientID, "Invalid message format")
			continue
		}

		switch msg.Type {
		case "ping":
			if err := h.hub.SendTo(clientID, services.WSMessage{Type: "pong"}); err != nil {
				return
			}
		default:
			h.sendError(clientID, "Unknown message type")
		}
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(clientID, message string) {
	if err := h.hub.SendTo(clientID, services.WSMessage{Type: "error", Message: message}); err != nil {
		log.Debug().Err(err).Str("client_id", clientID).Msg("Failed to send WebSocket error")
	}
}
