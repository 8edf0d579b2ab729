package rooms

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ysatyam-3107/studentsync/go/internal/identity"
	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

const maxCodeAttempts = 10

// ErrRoomCodeExhausted is returned when no free room code was found.
var ErrRoomCodeExhausted = errors.New("rooms: could not allocate a free room code")

// RoomsRepository defines what the app layer needs from the repository
type RoomsRepository interface {
	Exists(ctx context.Context, code string) (bool, error)
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, code string) (*models.Room, error)
	AddMember(ctx context.Context, code, participantID string) error
	GetTimer(ctx context.Context, code string) (models.TimerState, models.TimerSettings, error)
}

// MemberNotifier is told when a participant joins a room.
type MemberNotifier interface {
	MemberJoined(code, participantID string)
}

// App handles rooms business logic
type App struct {
	repo     RoomsRepository
	clock    clockwork.Clock
	notifier MemberNotifier
	newCode  func() (string, error)
}

// NewApp creates a new rooms App. notifier may be nil.
func NewApp(repo RoomsRepository, clock clockwork.Clock, notifier MemberNotifier) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		repo:     repo,
		clock:    clock,
		notifier: notifier,
		newCode:  GenerateCode,
	}
}

// GenerateCode returns a random room code drawn from a cryptographic source.
func GenerateCode() (string, error) {
	alphabet := big.NewInt(int64(len(models.RoomCodeAlphabet)))
	var b strings.Builder
	b.Grow(models.RoomCodeLength)
	for i := 0; i < models.RoomCodeLength; i++ {
		n, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		b.WriteByte(models.RoomCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// CreateRoom allocates a free code and creates a room hosted by participantID.
//
// Allocation checks for an existing room before writing; two creators racing
// on the same code are not detected since the store has no conditional writes.
func (a *App) CreateRoom(ctx context.Context, participantID string) (*models.Room, error) {
	if err := identity.ValidateParticipantID(participantID); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var code string
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate, err := a.newCode()
		if err != nil {
			return nil, err
		}
		exists, err := a.repo.Exists(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if !exists {
			code = candidate
			break
		}
		log.Debug().Str("room_id", candidate).Msg("room code collision, retrying")
	}
	if code == "" {
		return nil, ErrRoomCodeExhausted
	}

	room := &models.Room{
		Code:      code,
		CreatedBy: participantID,
		CreatedAt: a.clock.Now().UTC(),
	}
	if err := a.repo.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	log.Info().Str("room_id", code).Str("created_by", participantID).Msg("created room")
	return room, nil
}

// JoinRoom adds participantID to the room with the given code. Codes are
// matched case-insensitively.
func (a *App) JoinRoom(ctx context.Context, code, participantID string) (*models.Room, error) {
	if err := identity.ValidateParticipantID(participantID); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	code = models.NormalizeRoomCode(code)
	if !models.ValidRoomCode(code) {
		return nil, fmt.Errorf("%w: %q", roomtimer.ErrInvalidRoomID, code)
	}

	room, err := a.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := a.repo.AddMember(ctx, code, participantID); err != nil {
		return nil, err
	}

	log.Info().Str("room_id", code).Str("participant_id", participantID).Msg("participant joined room")
	if a.notifier != nil {
		a.notifier.MemberJoined(code, participantID)
	}
	return room, nil
}

// GetRoom retrieves a room by code
func (a *App) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	code = models.NormalizeRoomCode(code)
	if !models.ValidRoomCode(code) {
		return nil, fmt.Errorf("%w: %q", roomtimer.ErrInvalidRoomID, code)
	}
	room, err := a.repo.GetRoom(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", roomtimer.ErrRoomNotFound, code)
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// GetTimer returns the room's timer reconciled against the server clock.
func (a *App) GetTimer(ctx context.Context, code string) (*TimerView, error) {
	room, err := a.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	state, settings, err := a.repo.GetTimer(ctx, room.Code)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	out := roomtimer.Reconcile(state, now)
	view := &TimerView{
		Code:         room.Code,
		Phase:        state.Phase(),
		Running:      state.Running,
		EndTime:      state.EndTime,
		Expired:      out.Kind == roomtimer.Expired,
		WorkMinutes:  settings.WorkMinutes,
		BreakMinutes: settings.BreakMinutes,
		ServerTime:   now.UnixMilli(),
	}
	switch {
	case out.Kind == roomtimer.Active, out.Remaining > 0:
		view.RemainingMs = out.Remaining.Milliseconds()
	case out.Kind == roomtimer.Idle:
		view.RemainingMs = settings.Duration(state.IsBreak).Milliseconds()
	}
	return view, nil
}
