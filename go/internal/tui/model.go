// Package tui is a Bubble Tea terminal client for a shared room timer.
package tui

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
)

// Submitter accepts timer commands. *roomtimer.Session satisfies it.
type Submitter interface {
	Submit(roomtimer.Command) error
}

// Options configures the model.
type Options struct {
	RoomID    string
	Session   Submitter
	Prefs     Prefs
	PrefsPath string
}

const (
	fieldWork = iota
	fieldBreak
)

// Model is the root Bubble Tea model.
type Model struct {
	roomID    string
	session   Submitter
	prefs     Prefs
	prefsPath string

	keys  keyMap
	help  help.Model
	theme Theme

	display    roomtimer.Display
	hasDisplay bool
	notice     *roomtimer.Notice
	ended      bool
	endErr     error

	editing     bool
	inputs      [2]textinput.Model
	focusIdx    int
	fieldErrors map[string]string

	width  int
	height int
}

// New creates the model.
func New(opts Options) Model {
	inputs := [2]textinput.Model{textinput.New(), textinput.New()}
	for i := range inputs {
		inputs[i].CharLimit = 3
		inputs[i].Width = 6
	}
	inputs[fieldWork].Placeholder = "25"
	inputs[fieldBreak].Placeholder = "5"

	return Model{
		roomID:    opts.RoomID,
		session:   opts.Session,
		prefs:     opts.Prefs,
		prefsPath: opts.PrefsPath,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		theme:     GetTheme(opts.Prefs.Theme),
		inputs:    inputs,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case displayMsg:
		m.display = roomtimer.Display(msg)
		m.hasDisplay = true
		return m, nil

	case noticeMsg:
		n := roomtimer.Notice(msg)
		m.notice = &n
		if len(n.FieldErrors) > 0 {
			m.fieldErrors = n.FieldErrors
		}
		return m, nil

	case sessionEndedMsg:
		m.ended = true
		m.endErr = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if m.editing {
			return m.handleFormKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
	case key.Matches(msg, m.keys.Start):
		m.submit(roomtimer.Command{Kind: roomtimer.CommandStart})
	case key.Matches(msg, m.keys.Pause):
		m.submit(roomtimer.Command{Kind: roomtimer.CommandPause})
	case key.Matches(msg, m.keys.Reset):
		m.submit(roomtimer.Command{Kind: roomtimer.CommandReset})
	case key.Matches(msg, m.keys.Settings):
		if !m.display.ControlsEnabled {
			m.notice = &roomtimer.Notice{Level: roomtimer.NoticeWarning, Message: "Only the host can change the durations"}
			return m, nil
		}
		return m, m.openForm()
	}
	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		m.closeForm()
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		return m, m.focusField(1 - m.focusIdx)
	case key.Matches(msg, m.keys.Confirm):
		return m.submitForm()
	}

	var cmd tea.Cmd
	m.inputs[m.focusIdx], cmd = m.inputs[m.focusIdx].Update(msg)
	return m, cmd
}

func (m *Model) openForm() tea.Cmd {
	m.editing = true
	m.fieldErrors = nil
	m.inputs[fieldWork].SetValue(strconv.Itoa(m.display.WorkMinutes))
	m.inputs[fieldBreak].SetValue(strconv.Itoa(m.display.BreakMinutes))
	return m.focusField(fieldWork)
}

func (m *Model) closeForm() {
	m.editing = false
	m.fieldErrors = nil
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

func (m *Model) focusField(idx int) tea.Cmd {
	m.focusIdx = idx
	for i := range m.inputs {
		if i != idx {
			m.inputs[i].Blur()
		}
	}
	return m.inputs[idx].Focus()
}

// submitForm validates locally so the form stays open on bad input; the
// session validates again before writing.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	workText := m.inputs[fieldWork].Value()
	breakText := m.inputs[fieldBreak].Value()

	if _, err := roomtimer.ParseSettings(workText, breakText); err != nil {
		var verr *roomtimer.ValidationError
		if errors.As(err, &verr) {
			m.fieldErrors = verr.FieldErrors
		}
		m.notice = &roomtimer.Notice{Level: roomtimer.NoticeError, Message: "Invalid timer settings"}
		return m, nil
	}

	m.closeForm()
	m.submit(roomtimer.Command{
		Kind:      roomtimer.CommandUpdateSettings,
		WorkText:  workText,
		BreakText: breakText,
	})
	return m, nil
}

func (m *Model) submit(cmd roomtimer.Command) {
	if m.session == nil {
		return
	}
	if err := m.session.Submit(cmd); err != nil {
		log.Warn().Err(err).Str("command", string(cmd.Kind)).Msg("command dropped")
		m.notice = &roomtimer.Notice{Level: roomtimer.NoticeWarning, Message: "Busy, try again"}
		return
	}
	m.notice = nil
}

func (m *Model) cycleTheme() {
	m.prefs.Theme = NextTheme(m.theme.Name)
	m.theme = GetTheme(m.prefs.Theme)
	if m.prefsPath == "" {
		return
	}
	if err := SavePrefs(m.prefsPath, m.prefs); err != nil {
		log.Warn().Err(err).Msg("failed to save preferences")
		m.notice = &roomtimer.Notice{Level: roomtimer.NoticeWarning, Message: "Could not save preferences"}
	}
}

// Err returns the error that ended the session, if any.
func (m Model) Err() error {
	return m.endErr
}

// View implements tea.Model.
func (m Model) View() string {
	styles := m.theme.Styles(m.phaseColor())

	var b strings.Builder
	b.WriteString(styles.Title.Render("Room " + m.roomID))
	if m.hasDisplay {
		role := "participant"
		if m.display.IsHost {
			role = "host"
		}
		b.WriteString(styles.Muted.Render("  (" + role + ")"))
	}
	b.WriteString("\n\n")

	switch {
	case m.ended && m.endErr != nil:
		b.WriteString(styles.Error.Render(m.endErr.Error()))
	case !m.hasDisplay:
		b.WriteString(styles.Muted.Render("Connecting..."))
	default:
		b.WriteString(styles.Status.Render(m.display.PhaseLabel))
		b.WriteString("\n")
		b.WriteString(styles.Clock.Render(m.display.Clock))
		b.WriteString("\n")
		b.WriteString(styles.Status.Render(m.display.Status))
		b.WriteString("\n\n")
		b.WriteString(styles.Muted.Render(fmt.Sprintf("work %d min · break %d min", m.display.WorkMinutes, m.display.BreakMinutes)))
	}

	if m.editing {
		b.WriteString("\n\n")
		b.WriteString(m.renderForm(styles))
	}

	if m.notice != nil {
		b.WriteString("\n\n")
		b.WriteString(renderNotice(*m.notice, styles))
	}

	frame := styles.Frame.Render(b.String())
	return lipgloss.JoinVertical(lipgloss.Left, frame, m.help.View(m.keys))
}

func (m Model) renderForm(styles Styles) string {
	labels := [2]string{"Work minutes", "Break minutes"}
	fields := [2]string{roomtimer.FieldWorkMinutes, roomtimer.FieldBreakMinutes}

	var b strings.Builder
	for i := range m.inputs {
		b.WriteString(styles.Label.Render(labels[i]))
		b.WriteString(m.inputs[i].View())
		if msg, ok := m.fieldErrors[fields[i]]; ok {
			b.WriteString("  ")
			b.WriteString(styles.Error.Render(msg))
		}
		if i < len(m.inputs)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderNotice(n roomtimer.Notice, styles Styles) string {
	style := styles.Info
	switch n.Level {
	case roomtimer.NoticeWarning:
		style = styles.Warning
	case roomtimer.NoticeError:
		style = styles.Error
	}

	lines := []string{n.Message}
	fields := make([]string, 0, len(n.FieldErrors))
	for field := range n.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		lines = append(lines, "  "+field+": "+n.FieldErrors[field])
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m Model) phaseColor() string {
	switch {
	case !m.hasDisplay:
		return m.theme.Muted
	case m.display.Paused:
		return m.theme.Paused
	case m.display.Phase == models.PhaseBreak:
		return m.theme.Break
	default:
		return m.theme.Work
	}
}
