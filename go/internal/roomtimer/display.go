package roomtimer

import (
	"fmt"
	"time"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
)

// Status lines shown under the clock.
const (
	StatusFocus    = "Focus Time"
	StatusBreak    = "Break Time"
	StatusPaused   = "Paused"
	StatusReady    = "Ready"
	StatusFinished = "Session finished"
)

// Display is everything a surface needs to draw the room timer.
type Display struct {
	RoomID          string       `json:"room_id"`
	Phase           models.Phase `json:"phase"`
	PhaseLabel      string       `json:"phase_label"`
	Status          string       `json:"status"`
	Clock           string       `json:"clock"`
	RemainingMs     int64        `json:"remaining_ms"`
	Running         bool         `json:"running"`
	Paused          bool         `json:"paused"`
	Finished        bool         `json:"finished"`
	IsHost          bool         `json:"is_host"`
	ControlsEnabled bool         `json:"controls_enabled"`
	WorkMinutes     int          `json:"work_minutes"`
	BreakMinutes    int          `json:"break_minutes"`
}

// NoticeLevel grades a Notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient message for the user, such as a failed write or a
// rejected settings form.
type Notice struct {
	Level       NoticeLevel       `json:"level"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// DisplaySink receives display updates from a Session. Calls are made from
// the session goroutine and must not block for long.
type DisplaySink interface {
	Render(Display)
	Notify(Notice)
}

// FormatClock renders d as mm:ss, rounding partial seconds up so that a
// freshly started 25 minute phase shows 25:00 and 00:00 only appears at
// expiry. Minutes are not wrapped into hours.
func FormatClock(d time.Duration) string {
	if d <= 0 {
		return "00:00"
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func buildDisplay(roomID string, auth Authority, settings models.TimerSettings, state models.TimerState, out Outcome) Display {
	phase := state.Phase()
	d := Display{
		RoomID:          roomID,
		Phase:           phase,
		PhaseLabel:      phase.Label(),
		IsHost:          auth.IsHost,
		ControlsEnabled: auth.IsHost,
		WorkMinutes:     settings.WorkMinutes,
		BreakMinutes:    settings.BreakMinutes,
	}

	var remaining time.Duration
	switch out.Kind {
	case Active:
		remaining = out.Remaining
		d.Running = true
		if state.IsBreak {
			d.Status = StatusBreak
		} else {
			d.Status = StatusFocus
		}
	case Expired:
		d.Finished = true
		d.Status = StatusFinished
	default:
		if out.Remaining > 0 {
			remaining = out.Remaining
			d.Paused = true
			d.Status = StatusPaused
		} else {
			remaining = settings.Duration(state.IsBreak)
			d.Status = StatusReady
		}
	}

	d.RemainingMs = remaining.Milliseconds()
	d.Clock = FormatClock(remaining)
	return d
}
