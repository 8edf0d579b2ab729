package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
)

type displayMsg roomtimer.Display

type noticeMsg roomtimer.Notice

type sessionEndedMsg struct{ err error }

// SessionEnded is sent to the program when the timer session stops.
func SessionEnded(err error) tea.Msg {
	return sessionEndedMsg{err: err}
}

// ProgramSink forwards session output into a running Bubble Tea program.
// Output produced before Attach is dropped.
type ProgramSink struct {
	send func(tea.Msg)
}

// Attach directs output to p. It must be called before the session runs.
func (s *ProgramSink) Attach(p *tea.Program) {
	s.send = p.Send
}

var _ roomtimer.DisplaySink = (*ProgramSink)(nil)

func (s *ProgramSink) Render(d roomtimer.Display) {
	if s.send != nil {
		s.send(displayMsg(d))
	}
}

func (s *ProgramSink) Notify(n roomtimer.Notice) {
	if s.send != nil {
		s.send(noticeMsg(n))
	}
}
