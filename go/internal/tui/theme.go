package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors of the terminal client.
type Theme struct {
	Name string

	Text    string
	Muted   string
	Border  string
	Work    string
	Break   string
	Paused  string
	Warning string
	Danger  string
}

var themes = []Theme{
	{
		Name:    "Tomato",
		Text:    "#f8f8f2",
		Muted:   "#8a8f98",
		Border:  "#44475a",
		Work:    "#ff6347",
		Break:   "#50fa7b",
		Paused:  "#f1fa8c",
		Warning: "#ffb86c",
		Danger:  "#ff5555",
	},
	{
		Name:    "Slate",
		Text:    "#e2e8f0",
		Muted:   "#94a3b8",
		Border:  "#334155",
		Work:    "#60a5fa",
		Break:   "#34d399",
		Paused:  "#fbbf24",
		Warning: "#f59e0b",
		Danger:  "#f87171",
	},
}

// ThemeNames lists the available themes in cycle order.
func ThemeNames() []string {
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}

// GetTheme returns the named theme, or the first theme when unknown.
func GetTheme(name string) Theme {
	for _, t := range themes {
		if t.Name == name {
			return t
		}
	}
	return themes[0]
}

// NextTheme returns the theme after name, wrapping around.
func NextTheme(name string) string {
	for i, t := range themes {
		if t.Name == name {
			return themes[(i+1)%len(themes)].Name
		}
	}
	return themes[0].Name
}

// Styles holds the lipgloss styles derived from a Theme.
type Styles struct {
	Frame   lipgloss.Style
	Title   lipgloss.Style
	Clock   lipgloss.Style
	Status  lipgloss.Style
	Muted   lipgloss.Style
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Label   lipgloss.Style
}

// Styles returns the styles for this theme. The clock is colored by phase.
func (t Theme) Styles(phaseColor string) Styles {
	return Styles{
		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(1, 4),
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Text)).
			Bold(true),
		Clock: lipgloss.NewStyle().
			Foreground(lipgloss.Color(phaseColor)).
			Bold(true),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color(phaseColor)),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)),
		Info: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Text)),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Bold(true),
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)).
			Width(16),
	}
}
