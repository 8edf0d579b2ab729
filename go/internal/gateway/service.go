package gateway

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ysatyam-3107/studentsync/go/internal/identity"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

// Service is the room gateway: browser clients connect over WebSocket and
// each connection follows the room timer through its own session.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
}

// Config holds configuration for the room gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the room gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a new room gateway service
func NewService(config Config, s store.Store, tokens *identity.Tokens, clock clockwork.Clock) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, s, clock)
	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, tokens),
	}
}

// Start runs the broadcast loop until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting room gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("room gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("room gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}

// MemberJoined announces a new member to everyone connected to the room.
func (s *Service) MemberJoined(roomID, participantID string) {
	event, err := NewRoomEvent(roomID, EventTypeMemberJoined, MemberJoinedPayload{ParticipantID: participantID})
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to build member joined event")
		return
	}
	s.connectionManager.BroadcastToRoom(roomID, event)
}
