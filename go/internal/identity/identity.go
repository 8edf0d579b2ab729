// Package identity answers "who is this participant" for timer sessions.
//
// Participants are opaque string ids. The server hands them out as signed
// tokens; the terminal client keeps one in its preferences file.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

var (
	// ErrNoParticipant is returned when no participant id is available.
	ErrNoParticipant = errors.New("identity: no participant id")
	// ErrInvalidParticipant is returned for ids that cannot key a room member.
	ErrInvalidParticipant = errors.New("identity: invalid participant id")
)

// ValidateParticipantID checks that id is present and usable as a store
// path segment (letters, digits, '_' and '-').
func ValidateParticipantID(id string) error {
	if id == "" {
		return ErrNoParticipant
	}
	if !store.ValidSegment(id) {
		return fmt.Errorf("%w: %q", ErrInvalidParticipant, id)
	}
	return nil
}

// Provider exposes the id of the participant running the current client.
type Provider interface {
	CurrentParticipantID() (string, error)
}

// Static is a Provider with a fixed id.
type Static string

// CurrentParticipantID returns the fixed id once it passes
// ValidateParticipantID.
func (s Static) CurrentParticipantID() (string, error) {
	id := strings.TrimSpace(string(s))
	if err := ValidateParticipantID(id); err != nil {
		return "", err
	}
	return id, nil
}

// NewParticipantID generates a fresh anonymous participant id.
func NewParticipantID() string {
	return uuid.NewString()
}
