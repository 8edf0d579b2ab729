package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

// Repository implements room data access on top of the shared store
type Repository struct {
	store store.Store
}

// NewRepository creates a new rooms repository
func NewRepository(s store.Store) *Repository {
	return &Repository{
		store: s,
	}
}

// Exists reports whether a room is recorded under code.
func (r *Repository) Exists(ctx context.Context, code string) (bool, error) {
	_, err := r.store.Read(ctx, roomtimer.CreatedByPath(code))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check room: %w", err)
	}
	return true, nil
}

// CreateRoom writes a new room with a zeroed timer and default settings.
// The creator's membership goes first so an unusable creator id leaves
// nothing behind. createdBy is written last: a room only becomes visible to
// AuthorityResolver once everything else is in place.
func (r *Repository) CreateRoom(ctx context.Context, room *models.Room) error {
	if err := r.AddMember(ctx, room.Code, room.CreatedBy); err != nil {
		return err
	}
	timers := roomtimer.NewTimerStore(r.store, room.Code)
	if err := timers.WriteTimer(ctx, models.TimerState{}); err != nil {
		return fmt.Errorf("failed to write initial timer: %w", err)
	}
	if err := timers.WriteSettings(ctx, models.DefaultTimerSettings()); err != nil {
		return fmt.Errorf("failed to write initial settings: %w", err)
	}
	if err := r.writeJSON(ctx, roomtimer.CreatedAtPath(room.Code), room.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to write createdAt: %w", err)
	}
	if err := r.writeJSON(ctx, roomtimer.CreatedByPath(room.Code), room.CreatedBy); err != nil {
		return fmt.Errorf("failed to write createdBy: %w", err)
	}
	return nil
}

// GetRoom reads the room metadata.
func (r *Repository) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	createdBy, err := roomtimer.NewTimerStore(r.store, code).ReadCreatedBy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	room := &models.Room{Code: code, CreatedBy: createdBy}
	raw, err := r.store.Read(ctx, roomtimer.CreatedAtPath(code))
	if err == nil {
		var ms int64
		if json.Unmarshal(raw, &ms) == nil {
			room.CreatedAt = time.UnixMilli(ms).UTC()
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to get room createdAt: %w", err)
	}
	return room, nil
}

// AddMember marks participantID as a member of the room.
func (r *Repository) AddMember(ctx context.Context, code, participantID string) error {
	if err := r.writeJSON(ctx, roomtimer.MemberPath(code, participantID), true); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// GetTimer reads the timer state and settings.
func (r *Repository) GetTimer(ctx context.Context, code string) (models.TimerState, models.TimerSettings, error) {
	timers := roomtimer.NewTimerStore(r.store, code)
	state, err := timers.ReadTimer(ctx)
	if err != nil {
		return models.TimerState{}, models.TimerSettings{}, fmt.Errorf("failed to get timer: %w", err)
	}
	settings, err := timers.ReadSettings(ctx)
	if err != nil {
		return models.TimerState{}, models.TimerSettings{}, fmt.Errorf("failed to get timer settings: %w", err)
	}
	return state, settings, nil
}

func (r *Repository) writeJSON(ctx context.Context, path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.store.Write(ctx, path, raw)
}
