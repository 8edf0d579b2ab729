package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the client.
type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding

	// Timer controls
	Start    key.Binding
	Pause    key.Binding
	Reset    key.Binding
	Settings key.Binding

	// Settings form
	NextField key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "h"),
			key.WithHelp("?", "toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "cycle theme"),
		),
		Start: key.NewBinding(
			key.WithKeys("s", " "),
			key.WithHelp("s/space", "start"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Settings: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit durations"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "shift+tab", "up", "down"),
			key.WithHelp("tab", "next field"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Reset, k.Settings, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Pause, k.Reset, k.Settings},
		{k.NextField, k.Confirm, k.Cancel},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
