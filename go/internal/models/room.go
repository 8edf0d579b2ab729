package models

import (
	"strings"
	"time"
)

// Room represents a study room and the metadata the timer depends on.
type Room struct {
	Code      string    `json:"code"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Room codes are short, case-insensitive identifiers shared between members.
const (
	RoomCodeLength   = 6
	RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NormalizeRoomCode trims and upper-cases a code typed by a user.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidRoomCode reports whether code is a well-formed, normalized room code.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(RoomCodeAlphabet, r) {
			return false
		}
	}
	return true
}
