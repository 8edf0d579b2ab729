package roomtimer

import (
	"context"
	"errors"
	"testing"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

func newTestSettingsManager(t *testing.T, isHost bool) (*SettingsManager, *TimerStore) {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	seedRoom(t, s, models.DefaultTimerSettings())

	timers := NewTimerStore(s, testRoom)
	return NewSettingsManager(timers, Authority{RoomID: testRoom, IsHost: isHost}), timers
}

func TestSettingsUpdateBounds(t *testing.T) {
	tests := []struct {
		name        string
		work, brk   int
		wantInvalid []string
	}{
		{name: "minimums", work: 1, brk: 1},
		{name: "maximums", work: 120, brk: 60},
		{name: "zero work", work: 0, brk: 5, wantInvalid: []string{FieldWorkMinutes}},
		{name: "work too long", work: 121, brk: 5, wantInvalid: []string{FieldWorkMinutes}},
		{name: "break too long", work: 25, brk: 61, wantInvalid: []string{FieldBreakMinutes}},
		{name: "both invalid", work: -1, brk: 0, wantInvalid: []string{FieldWorkMinutes, FieldBreakMinutes}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m, timers := newTestSettingsManager(t, true)

			err := m.Update(ctx, models.TimerSettings{WorkMinutes: tt.work, BreakMinutes: tt.brk})
			stored, _ := timers.ReadSettings(ctx)

			if len(tt.wantInvalid) == 0 {
				if err != nil {
					t.Fatalf("Update() error = %v", err)
				}
				if stored.WorkMinutes != tt.work || stored.BreakMinutes != tt.brk {
					t.Errorf("stored = %+v", stored)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Update() error = %v, want ValidationError", err)
			}
			for _, field := range tt.wantInvalid {
				if _, ok := verr.FieldErrors[field]; !ok {
					t.Errorf("missing field error for %s in %v", field, verr.FieldErrors)
				}
			}
			if stored != models.DefaultTimerSettings() {
				t.Errorf("invalid update was written: %+v", stored)
			}
		})
	}
}

func TestParseSettings(t *testing.T) {
	got, err := ParseSettings(" 45 ", "10")
	if err != nil {
		t.Fatalf("ParseSettings() error = %v", err)
	}
	if got != (models.TimerSettings{WorkMinutes: 45, BreakMinutes: 10}) {
		t.Errorf("ParseSettings() = %+v", got)
	}

	_, err = ParseSettings("abc", "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ParseSettings(abc) error = %v", err)
	}
	if len(verr.FieldErrors) != 2 {
		t.Errorf("field errors = %v, want both fields", verr.FieldErrors)
	}
}

func TestSettingsNonHostCannotUpdate(t *testing.T) {
	ctx := context.Background()
	m, timers := newTestSettingsManager(t, false)

	if err := m.Update(ctx, models.TimerSettings{WorkMinutes: 50, BreakMinutes: 10}); !errors.Is(err, ErrNotHost) {
		t.Fatalf("Update() error = %v, want ErrNotHost", err)
	}
	if _, err := m.ParseAndUpdate(ctx, "50", "10"); !errors.Is(err, ErrNotHost) {
		t.Fatalf("ParseAndUpdate() error = %v, want ErrNotHost", err)
	}
	if stored, _ := timers.ReadSettings(ctx); stored != models.DefaultTimerSettings() {
		t.Errorf("non-host changed settings to %+v", stored)
	}
}

func TestSettingsLoadDefaults(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()

	got, err := NewSettingsManager(NewTimerStore(s, testRoom), Authority{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != models.DefaultTimerSettings() {
		t.Errorf("Load() = %+v, want defaults", got)
	}
}

func TestDecodeSettingsFillsMissingFields(t *testing.T) {
	got, err := DecodeSettings([]byte(`{"workMinutes":40}`))
	if err != nil {
		t.Fatalf("DecodeSettings() error = %v", err)
	}
	if got != (models.TimerSettings{WorkMinutes: 40, BreakMinutes: models.DefaultBreakMinutes}) {
		t.Errorf("DecodeSettings() = %+v", got)
	}
}
