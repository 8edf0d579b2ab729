package roomtimer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
)

// Field names used in ValidationError.FieldErrors.
const (
	FieldWorkMinutes  = "workMinutes"
	FieldBreakMinutes = "breakMinutes"
)

// ValidateSettings checks both durations against their bounds.
func ValidateSettings(settings models.TimerSettings) error {
	verr := &ValidationError{}
	if settings.WorkMinutes < models.MinWorkMinutes || settings.WorkMinutes > models.MaxWorkMinutes {
		verr.add(FieldWorkMinutes, fmt.Sprintf("work duration must be between %d and %d minutes",
			models.MinWorkMinutes, models.MaxWorkMinutes))
	}
	if settings.BreakMinutes < models.MinBreakMinutes || settings.BreakMinutes > models.MaxBreakMinutes {
		verr.add(FieldBreakMinutes, fmt.Sprintf("break duration must be between %d and %d minutes",
			models.MinBreakMinutes, models.MaxBreakMinutes))
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// ParseSettings converts free-text form input into validated settings.
func ParseSettings(workText, breakText string) (models.TimerSettings, error) {
	verr := &ValidationError{}
	work, err := parseMinutes(workText)
	if err != nil {
		verr.add(FieldWorkMinutes, err.Error())
	}
	brk, err := parseMinutes(breakText)
	if err != nil {
		verr.add(FieldBreakMinutes, err.Error())
	}
	if verr.HasErrors() {
		return models.TimerSettings{}, verr
	}

	settings := models.TimerSettings{WorkMinutes: work, BreakMinutes: brk}
	if err := ValidateSettings(settings); err != nil {
		return models.TimerSettings{}, err
	}
	return settings, nil
}

func parseMinutes(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("a value is required")
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number of minutes", text)
	}
	return n, nil
}

// SettingsManager reads and, for the host, writes a room's durations.
// Updated settings apply from the next start, reset or phase switch; a
// running countdown keeps its end time.
type SettingsManager struct {
	timers    *TimerStore
	authority Authority
}

// NewSettingsManager creates a manager acting with the given authority.
func NewSettingsManager(timers *TimerStore, authority Authority) *SettingsManager {
	return &SettingsManager{timers: timers, authority: authority}
}

// Load returns the stored settings, falling back to the defaults.
func (m *SettingsManager) Load(ctx context.Context) (models.TimerSettings, error) {
	settings, err := m.timers.ReadSettings(ctx)
	if err != nil {
		return models.DefaultTimerSettings(), fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// Update validates and writes both durations. Non-hosts get ErrNotHost and
// invalid values a *ValidationError; neither writes anything.
func (m *SettingsManager) Update(ctx context.Context, settings models.TimerSettings) error {
	if !m.authority.IsHost {
		return ErrNotHost
	}
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	if err := m.timers.WriteSettings(ctx, settings); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	log.Info().
		Str("room_id", m.timers.RoomID()).
		Int("work_minutes", settings.WorkMinutes).
		Int("break_minutes", settings.BreakMinutes).
		Msg("timer settings updated")
	return nil
}

// ParseAndUpdate is Update for free-text input.
func (m *SettingsManager) ParseAndUpdate(ctx context.Context, workText, breakText string) (models.TimerSettings, error) {
	if !m.authority.IsHost {
		return models.TimerSettings{}, ErrNotHost
	}
	settings, err := ParseSettings(workText, breakText)
	if err != nil {
		return models.TimerSettings{}, err
	}
	return settings, m.Update(ctx, settings)
}
