package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

const (
	sendBuffer      = 256
	broadcastBuffer = 1000
)

// ConnectionConfig holds WebSocket and timer session settings
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool

	ExpiryPolicy    roomtimer.ExpiryPolicy
	ResubscribeWait time.Duration
}

// DefaultConnectionConfig returns the default gateway settings. Pings go out
// well inside the read timeout so idle clients stay connected.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1 << 10,
		ReadBufferSize:  1 << 10,
		WriteBufferSize: 1 << 10,
		CheckOrigin:     func(*http.Request) bool { return true },
		ExpiryPolicy:    roomtimer.ExpiryAutoContinue,
		ResubscribeWait: 2 * time.Second,
	}
}

// outbound is an event addressed to a room, or to one participant in it.
type outbound struct {
	roomID        string
	participantID string
	event         *RoomEvent
}

// ConnectionManager tracks live connections per room and fans room-wide
// events out to them. Timer displays do not pass through here: every
// connection renders its own session.
type ConnectionManager struct {
	mu    sync.RWMutex
	rooms map[string]map[*Connection]struct{}

	upgrader websocket.Upgrader
	config   ConnectionConfig
	store    store.Store
	clock    clockwork.Clock
	outbox   chan outbound
}

// NewConnectionManager creates a manager whose sessions follow s.
func NewConnectionManager(config ConnectionConfig, s store.Store, clock clockwork.Clock) *ConnectionManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionManager{
		rooms: make(map[string]map[*Connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		store:  s,
		clock:  clock,
		outbox: make(chan outbound, broadcastBuffer),
	}
}

// Start delivers queued broadcasts until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	defer log.Info().Msg("connection manager stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-cm.outbox:
			cm.deliver(msg)
		}
	}
}

// UpgradeConnection upgrades the request to a WebSocket and attaches a timer
// session for participantID in roomID. The session ends with the socket.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, participantID, roomID string) error {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := cm.clock.Now()
	conn := &Connection{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		RoomID:        roomID,
		Conn:          ws,
		Send:          make(chan []byte, sendBuffer),
		Manager:       cm,
		ConnectedAt:   now,
		lastPong:      now,
	}

	conn.session, err = roomtimer.NewSession(roomtimer.SessionConfig{
		Store:           cm.store,
		RoomID:          roomID,
		ParticipantID:   participantID,
		Sink:            conn,
		Clock:           cm.clock,
		ExpiryPolicy:    cm.config.ExpiryPolicy,
		ResubscribeWait: cm.config.ResubscribeWait,
	})
	if err != nil {
		ws.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn.cancel = cancel
	cm.add(conn)

	go conn.runSession(ctx)
	go conn.writePump()
	go conn.readPump()

	log.Info().
		Str("connection_id", conn.ID).
		Str("participant_id", participantID).
		Str("room_id", roomID).
		Msg("room connection opened")
	return nil
}

func (cm *ConnectionManager) add(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	members, ok := cm.rooms[conn.RoomID]
	if !ok {
		members = make(map[*Connection]struct{})
		cm.rooms[conn.RoomID] = members
	}
	members[conn] = struct{}{}

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room_id", conn.RoomID).
		Int("room_connections", len(members)).
		Msg("connection added")
}

// remove detaches conn and stops its session. Safe to call more than once.
func (cm *ConnectionManager) remove(conn *Connection) {
	cm.mu.Lock()
	members := cm.rooms[conn.RoomID]
	_, ok := members[conn]
	if ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(cm.rooms, conn.RoomID)
		}
	}
	cm.mu.Unlock()

	if !ok {
		return
	}
	conn.closeSend()
	conn.cancel()

	log.Info().
		Str("connection_id", conn.ID).
		Str("participant_id", conn.ParticipantID).
		Str("room_id", conn.RoomID).
		Dur("connected_for", cm.clock.Since(conn.ConnectedAt)).
		Msg("room connection closed")
}

// BroadcastToRoom queues event for every connection in roomID.
func (cm *ConnectionManager) BroadcastToRoom(roomID string, event *RoomEvent) {
	cm.queue(outbound{roomID: roomID, event: event})
}

// BroadcastToParticipant queues event for participantID's connections in roomID.
func (cm *ConnectionManager) BroadcastToParticipant(roomID, participantID string, event *RoomEvent) {
	cm.queue(outbound{roomID: roomID, participantID: participantID, event: event})
}

func (cm *ConnectionManager) queue(msg outbound) {
	select {
	case cm.outbox <- msg:
	default:
		log.Warn().
			Str("room_id", msg.roomID).
			Str("event_type", string(msg.event.Type)).
			Msg("broadcast queue full, dropping event")
	}
}

func (cm *ConnectionManager) deliver(msg outbound) {
	data, err := json.Marshal(msg.event)
	if err != nil {
		log.Error().Err(err).Str("room_id", msg.roomID).Msg("failed to encode broadcast event")
		return
	}

	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.rooms[msg.roomID]))
	for conn := range cm.rooms[msg.roomID] {
		if msg.participantID == "" || conn.ParticipantID == msg.participantID {
			targets = append(targets, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		conn.enqueue(data)
	}

	log.Debug().
		Str("event_type", string(msg.event.Type)).
		Str("room_id", msg.roomID).
		Int("recipients", len(targets)).
		Msg("event delivered")
}

// ConnectionStats summarizes active connections
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
}

// GetConnectionStats returns a snapshot of connection counts per room.
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveRooms:     len(cm.rooms),
		RoomConnections: make(map[string]int, len(cm.rooms)),
	}
	for roomID, members := range cm.rooms {
		stats.TotalConnections += len(members)
		stats.RoomConnections[roomID] = len(members)
	}
	return stats
}
