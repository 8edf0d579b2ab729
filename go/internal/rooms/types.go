package rooms

import "github.com/ysatyam-3107/studentsync/go/internal/models"

// IssueTokenRequest asks for a participant token. An empty ParticipantID
// mints a new anonymous participant.
type IssueTokenRequest struct {
	ParticipantID string `json:"participant_id,omitempty"`
}

// IssueTokenResponse carries a signed participant token.
type IssueTokenResponse struct {
	ParticipantID string `json:"participant_id"`
	Token         string `json:"token"`
	ExpiresAt     int64  `json:"expires_at"`
}

// CreateRoomRequest creates a room owned by the authenticated participant.
type CreateRoomRequest struct{}

// CreateRoomResponse returns the new room.
type CreateRoomResponse struct {
	Room *models.Room `json:"room"`
}

// JoinRoomRequest represents the data needed to join an existing room
type JoinRoomRequest struct {
	Code string `json:"code"`
}

// JoinRoomResponse returns the joined room and whether the caller hosts it.
type JoinRoomResponse struct {
	Room   *models.Room `json:"room"`
	IsHost bool         `json:"is_host"`
}

// GetTimerRequest asks for a room's timer.
type GetTimerRequest struct {
	Code string `json:"code"`
}

// GetTimerResponse is the timer view of a room.
type GetTimerResponse struct {
	Timer *TimerView `json:"timer"`
}

// TimerView is a room timer reconciled at server time.
type TimerView struct {
	Code         string       `json:"code"`
	Phase        models.Phase `json:"phase"`
	Running      bool         `json:"running"`
	EndTime      int64        `json:"end_time"`
	RemainingMs  int64        `json:"remaining_ms"`
	Expired      bool         `json:"expired"`
	WorkMinutes  int          `json:"work_minutes"`
	BreakMinutes int          `json:"break_minutes"`
	ServerTime   int64        `json:"server_time"`
}
