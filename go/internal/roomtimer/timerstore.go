package roomtimer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

// RoomPath is the prefix under which every document of a room is stored.
func RoomPath(roomID string) string { return store.Join("rooms", roomID) }

func CreatedByPath(roomID string) string     { return store.Join(RoomPath(roomID), "createdBy") }
func CreatedAtPath(roomID string) string     { return store.Join(RoomPath(roomID), "createdAt") }
func TimerPath(roomID string) string         { return store.Join(RoomPath(roomID), "timer") }
func TimerSettingsPath(roomID string) string { return store.Join(RoomPath(roomID), "timerSettings") }

func MemberPath(roomID, participantID string) string {
	return store.Join(RoomPath(roomID), "members", participantID)
}

// TimerStore gives typed access to the timer documents of one room.
type TimerStore struct {
	store  store.Store
	roomID string
}

// NewTimerStore binds s to roomID.
func NewTimerStore(s store.Store, roomID string) *TimerStore {
	return &TimerStore{store: s, roomID: roomID}
}

// RoomID returns the room this store is bound to.
func (t *TimerStore) RoomID() string {
	return t.roomID
}

// ReadCreatedBy returns the participant recorded as the room's creator.
func (t *TimerStore) ReadCreatedBy(ctx context.Context) (string, error) {
	raw, err := t.store.Read(ctx, CreatedByPath(t.roomID))
	if err != nil {
		return "", err
	}
	var createdBy string
	if err := json.Unmarshal(raw, &createdBy); err != nil {
		return "", fmt.Errorf("decode createdBy: %w", err)
	}
	return createdBy, nil
}

// ReadTimer returns the stored timer state; a missing document reads as the
// zero (idle, work phase) state.
func (t *TimerStore) ReadTimer(ctx context.Context) (models.TimerState, error) {
	raw, err := t.store.Read(ctx, TimerPath(t.roomID))
	if errors.Is(err, store.ErrNotFound) {
		return models.TimerState{}, nil
	}
	if err != nil {
		return models.TimerState{}, err
	}
	return DecodeTimer(raw)
}

// WriteTimer writes the whole timer sub-tree in a single store write so that
// subscribers never observe a mix of old and new fields.
func (t *TimerStore) WriteTimer(ctx context.Context, state models.TimerState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode timer: %w", err)
	}
	return t.store.Write(ctx, TimerPath(t.roomID), raw)
}

// ReadSettings returns the stored settings, or the defaults when none exist.
func (t *TimerStore) ReadSettings(ctx context.Context) (models.TimerSettings, error) {
	raw, err := t.store.Read(ctx, TimerSettingsPath(t.roomID))
	if errors.Is(err, store.ErrNotFound) {
		return models.DefaultTimerSettings(), nil
	}
	if err != nil {
		return models.DefaultTimerSettings(), err
	}
	return DecodeSettings(raw)
}

// WriteSettings writes both durations in one store write.
func (t *TimerStore) WriteSettings(ctx context.Context, settings models.TimerSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return t.store.Write(ctx, TimerSettingsPath(t.roomID), raw)
}

// SubscribeTimer watches the timer document.
func (t *TimerStore) SubscribeTimer(ctx context.Context) (store.Subscription, error) {
	return t.store.Subscribe(ctx, TimerPath(t.roomID))
}

// SubscribeSettings watches the settings document.
func (t *TimerStore) SubscribeSettings(ctx context.Context) (store.Subscription, error) {
	return t.store.Subscribe(ctx, TimerSettingsPath(t.roomID))
}

// DecodeTimer parses a timer document. Nil input is the zero state.
func DecodeTimer(raw []byte) (models.TimerState, error) {
	var state models.TimerState
	if raw == nil {
		return state, nil
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return models.TimerState{}, fmt.Errorf("decode timer: %w", err)
	}
	return state, nil
}

// DecodeSettings parses a settings document. Nil input and missing or
// non-positive fields fall back to the defaults field by field.
func DecodeSettings(raw []byte) (models.TimerSettings, error) {
	settings := models.DefaultTimerSettings()
	if raw == nil {
		return settings, nil
	}

	var stored models.TimerSettings
	if err := json.Unmarshal(raw, &stored); err != nil {
		return settings, fmt.Errorf("decode settings: %w", err)
	}
	if stored.WorkMinutes > 0 {
		settings.WorkMinutes = stored.WorkMinutes
	}
	if stored.BreakMinutes > 0 {
		settings.BreakMinutes = stored.BreakMinutes
	}
	return settings, nil
}
