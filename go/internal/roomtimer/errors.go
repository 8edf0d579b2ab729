package roomtimer

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotHost is returned when a participant without authority tries to
	// change the timer or its settings. The store itself does not enforce
	// this; the check is advisory and only protects well-behaved clients.
	ErrNotHost = errors.New("roomtimer: only the host can control the timer")
	// ErrInvalidRoomID is returned for a missing or malformed room code.
	ErrInvalidRoomID = errors.New("roomtimer: invalid room id")
	// ErrRoomNotFound is returned when no room is recorded under the code.
	ErrRoomNotFound = errors.New("roomtimer: room not found")
	// ErrSessionBusy is returned by Submit when the command queue is full.
	ErrSessionBusy = errors.New("roomtimer: session busy")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
