package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ysatyam-3107/studentsync/go/internal/identity"
	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
)

// WebSocketHandler handles WebSocket upgrade requests for room connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	tokens            *identity.Tokens
	authority         *roomtimer.AuthorityResolver
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, tokens *identity.Tokens) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		tokens:            tokens,
		authority:         roomtimer.NewAuthorityResolver(cm.store),
	}
}

// HandleRoomConnection handles WebSocket connections for a specific room
func (h *WebSocketHandler) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	roomID := models.NormalizeRoomCode(r.URL.Query().Get("room_id"))
	if roomID == "" {
		http.Error(w, "room_id is required", http.StatusBadRequest)
		return
	}
	if !models.ValidRoomCode(roomID) {
		http.Error(w, "invalid room_id format", http.StatusBadRequest)
		return
	}

	participantID, err := h.tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// Refuse unknown rooms before upgrading so clients get a plain HTTP status
	if _, err := h.authority.Resolve(r.Context(), participantID, roomID); errors.Is(err, roomtimer.ErrRoomNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, participantID, roomID); err != nil {
		log.Error().
			Err(err).
			Str("room_id", roomID).
			Str("participant_id", participantID).
			Msg("failed to upgrade WebSocket connection")
		// The upgrader has already replied to the client
		return
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.GetConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to write connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/room", h.HandleRoomConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
