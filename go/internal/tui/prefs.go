package tui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds terminal client preferences, stored as TOML.
type Prefs struct {
	ParticipantID string `toml:"participant_id"`
	NATSURL       string `toml:"nats_url"`
	Theme         string `toml:"theme"`
}

const (
	defaultPrefsPath = "~/.config/studysync/prefs.toml"
	defaultTheme     = "Tomato"
	defaultNATSURL   = "nats://localhost:4222"
)

// DefaultPrefsPath returns the default preferences file path.
func DefaultPrefsPath() string {
	return defaultPrefsPath
}

func defaultPrefs() Prefs {
	return Prefs{NATSURL: defaultNATSURL, Theme: defaultTheme}
}

// LoadPrefs reads preferences from path, falling back to defaults when the
// file is missing or unreadable.
func LoadPrefs(path string) (Prefs, error) {
	prefs := defaultPrefs()

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return defaultPrefs(), nil
	}

	prefs.ParticipantID = strings.TrimSpace(prefs.ParticipantID)
	if strings.TrimSpace(prefs.NATSURL) == "" {
		prefs.NATSURL = defaultNATSURL
	}
	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = defaultTheme
	}
	return prefs, nil
}

// SavePrefs writes preferences to path, creating directories as needed.
func SavePrefs(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultPrefsPath
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
