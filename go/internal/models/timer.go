package models

import "time"

// Phase identifies which interval of the cycle a room is in.
type Phase string

const (
	PhaseWork  Phase = "WORK"
	PhaseBreak Phase = "BREAK"
)

// Label returns the human readable name shown on display surfaces.
func (p Phase) Label() string {
	if p == PhaseBreak {
		return "Break"
	}
	return "Work"
}

// Settings bounds, in minutes.
const (
	MinWorkMinutes  = 1
	MaxWorkMinutes  = 120
	MinBreakMinutes = 1
	MaxBreakMinutes = 60

	DefaultWorkMinutes  = 25
	DefaultBreakMinutes = 5
)

// TimerState is the shared run state of a room timer, stored at
// rooms/{roomId}/timer.
//
// EndTime is epoch milliseconds on the host's clock and only meaningful
// while Running. RemainingMs holds the remainder captured at pause; zero
// means the current phase has not been started yet.
type TimerState struct {
	Running     bool  `json:"running"`
	EndTime     int64 `json:"endTime"`
	IsBreak     bool  `json:"isBreak"`
	RemainingMs int64 `json:"remainingMs,omitempty"`
}

// Phase returns the phase selected by IsBreak.
func (s TimerState) Phase() Phase {
	if s.IsBreak {
		return PhaseBreak
	}
	return PhaseWork
}

// EndAt converts EndTime to a time.Time.
func (s TimerState) EndAt() time.Time {
	return time.UnixMilli(s.EndTime)
}

// TimerSettings holds the configurable durations, stored at
// rooms/{roomId}/timerSettings.
type TimerSettings struct {
	WorkMinutes  int `json:"workMinutes"`
	BreakMinutes int `json:"breakMinutes"`
}

// DefaultTimerSettings returns the durations used when a room has none stored.
func DefaultTimerSettings() TimerSettings {
	return TimerSettings{
		WorkMinutes:  DefaultWorkMinutes,
		BreakMinutes: DefaultBreakMinutes,
	}
}

// Duration returns the configured length of the given phase.
func (s TimerSettings) Duration(isBreak bool) time.Duration {
	if isBreak {
		return time.Duration(s.BreakMinutes) * time.Minute
	}
	return time.Duration(s.WorkMinutes) * time.Minute
}
