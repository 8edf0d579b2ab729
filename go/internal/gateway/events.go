package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
)

// RoomEvent represents the base structure for all events pushed to clients
type RoomEvent struct {
	ID        string          `json:"id"`        // Event UUID
	RoomID    string          `json:"room_id"`   // Room code
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of room event
type EventType string

const (
	EventTypeDisplay      EventType = "display"
	EventTypeNotice       EventType = "notice"
	EventTypeMemberJoined EventType = "member_joined"
	EventTypeError        EventType = "error"
)

// MemberJoinedPayload announces a new room member.
type MemberJoinedPayload struct {
	ParticipantID string `json:"participant_id"`
}

// ErrorPayload explains why the server is closing a connection.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewRoomEvent wraps payload in an event envelope.
func NewRoomEvent(roomID string, eventType EventType, payload interface{}) (*RoomEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &RoomEvent{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *RoomEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeDisplay:
		var payload roomtimer.Display
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeNotice:
		var payload roomtimer.Notice
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeMemberJoined:
		var payload MemberJoinedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeError:
		var payload ErrorPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}

// ClientMessage is a command sent by a browser client.
type ClientMessage struct {
	Type         string `json:"type"`
	WorkMinutes  int    `json:"work_minutes,omitempty"`
	BreakMinutes int    `json:"break_minutes,omitempty"`
	WorkText     string `json:"work_text,omitempty"`
	BreakText    string `json:"break_text,omitempty"`
}

// Command converts the message into a timer command.
func (m ClientMessage) Command() (roomtimer.Command, error) {
	kind := roomtimer.CommandKind(m.Type)
	switch kind {
	case roomtimer.CommandStart, roomtimer.CommandPause, roomtimer.CommandReset, roomtimer.CommandUpdateSettings:
	default:
		return roomtimer.Command{}, fmt.Errorf("unknown message type %q", m.Type)
	}
	return roomtimer.Command{
		Kind:         kind,
		WorkMinutes:  m.WorkMinutes,
		BreakMinutes: m.BreakMinutes,
		WorkText:     m.WorkText,
		BreakText:    m.BreakText,
	}, nil
}
