package roomtimer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

// Authority is the resolved write authority of one participant over one
// room's timer.
type Authority struct {
	RoomID        string
	ParticipantID string
	CreatedBy     string
	IsHost        bool
}

// IsHost reports whether participantID is the room creator.
func IsHost(participantID, createdBy string) bool {
	return participantID != "" && participantID == createdBy
}

// AuthorityResolver decides whether a participant may control a room's timer
// by comparing them with the room's recorded creator.
type AuthorityResolver struct {
	store store.Store
}

// NewAuthorityResolver creates a resolver reading room metadata from s.
func NewAuthorityResolver(s store.Store) *AuthorityResolver {
	return &AuthorityResolver{store: s}
}

// Resolve reads the room creator once and compares it with participantID.
//
// A malformed code yields ErrInvalidRoomID and an unknown room
// ErrRoomNotFound. Any other read failure returns an Authority with IsHost
// false together with the error, so callers can disable controls and keep
// going.
func (r *AuthorityResolver) Resolve(ctx context.Context, participantID, roomID string) (Authority, error) {
	auth := Authority{RoomID: roomID, ParticipantID: participantID}

	if !models.ValidRoomCode(roomID) {
		return auth, fmt.Errorf("%w: %q", ErrInvalidRoomID, roomID)
	}

	createdBy, err := NewTimerStore(r.store, roomID).ReadCreatedBy(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return auth, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	if err != nil {
		log.Warn().
			Err(err).
			Str("room_id", roomID).
			Str("participant_id", participantID).
			Msg("room metadata unavailable, disabling timer controls")
		return auth, fmt.Errorf("read room creator: %w", err)
	}

	auth.CreatedBy = createdBy
	auth.IsHost = IsHost(participantID, createdBy)

	log.Debug().
		Str("room_id", roomID).
		Str("participant_id", participantID).
		Bool("is_host", auth.IsHost).
		Msg("resolved timer authority")
	return auth, nil
}
