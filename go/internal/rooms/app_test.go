package rooms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ysatyam-3107/studentsync/go/internal/identity"
	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

type joinRecorder struct {
	joins []string
}

func (j *joinRecorder) MemberJoined(code, participantID string) {
	j.joins = append(j.joins, code+":"+participantID)
}

func newTestApp(t *testing.T) (*App, *store.MemoryStore, *clockwork.FakeClock, *joinRecorder) {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	notifier := &joinRecorder{}
	return NewApp(NewRepository(s), clock, notifier), s, clock, notifier
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if !models.ValidRoomCode(code) {
			t.Fatalf("GenerateCode() = %q, not a valid code", code)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct codes out of 50", len(seen))
	}
}

func TestCreateRoomInitialState(t *testing.T) {
	ctx := context.Background()
	app, s, clock, _ := newTestApp(t)

	room, err := app.CreateRoom(ctx, "host-1")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.CreatedBy != "host-1" || !room.CreatedAt.Equal(clock.Now()) {
		t.Errorf("room = %+v", room)
	}

	timers := roomtimer.NewTimerStore(s, room.Code)
	if state, err := timers.ReadTimer(ctx); err != nil || state != (models.TimerState{}) {
		t.Errorf("initial timer = %+v, %v", state, err)
	}
	if settings, err := timers.ReadSettings(ctx); err != nil || settings != models.DefaultTimerSettings() {
		t.Errorf("initial settings = %+v, %v", settings, err)
	}
	if _, err := s.Read(ctx, roomtimer.MemberPath(room.Code, "host-1")); err != nil {
		t.Errorf("creator is not a member: %v", err)
	}

	got, err := app.GetRoom(ctx, room.Code)
	if err != nil || got.CreatedBy != "host-1" || !got.CreatedAt.Equal(room.CreatedAt) {
		t.Errorf("GetRoom() = %+v, %v", got, err)
	}
}

func TestCreateRoomRetriesCollisions(t *testing.T) {
	ctx := context.Background()
	app, _, _, _ := newTestApp(t)

	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	app.newCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	first, err := app.CreateRoom(ctx, "host-1")
	if err != nil || first.Code != "AAAAAA" {
		t.Fatalf("first room = %+v, %v", first, err)
	}
	second, err := app.CreateRoom(ctx, "host-2")
	if err != nil || second.Code != "BBBBBB" {
		t.Fatalf("second room = %+v, %v", second, err)
	}

	app.newCode = func() (string, error) { return "AAAAAA", nil }
	if _, err := app.CreateRoom(ctx, "host-3"); !errors.Is(err, ErrRoomCodeExhausted) {
		t.Errorf("CreateRoom() error = %v, want ErrRoomCodeExhausted", err)
	}
}

func TestJoinRoom(t *testing.T) {
	ctx := context.Background()
	app, s, _, notifier := newTestApp(t)
	app.newCode = func() (string, error) { return "QWE123", nil }

	if _, err := app.CreateRoom(ctx, "host-1"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	room, err := app.JoinRoom(ctx, " qwe123 ", "guest-1")
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if room.Code != "QWE123" || room.CreatedBy != "host-1" {
		t.Errorf("room = %+v", room)
	}
	if _, err := s.Read(ctx, roomtimer.MemberPath("QWE123", "guest-1")); err != nil {
		t.Errorf("guest is not a member: %v", err)
	}
	if len(notifier.joins) != 1 || notifier.joins[0] != "QWE123:guest-1" {
		t.Errorf("joins = %v", notifier.joins)
	}

	if _, err := app.JoinRoom(ctx, "ZZZ999", "guest-1"); !errors.Is(err, roomtimer.ErrRoomNotFound) {
		t.Errorf("JoinRoom(unknown) error = %v", err)
	}
	if _, err := app.JoinRoom(ctx, "QW", "guest-1"); !errors.Is(err, roomtimer.ErrInvalidRoomID) {
		t.Errorf("JoinRoom(short) error = %v", err)
	}
}

func TestRejectsUnusableParticipantIDs(t *testing.T) {
	ctx := context.Background()
	app, s, clock, notifier := newTestApp(t)
	app.newCode = func() (string, error) { return "ABC123", nil }

	if _, err := app.CreateRoom(ctx, "alice.smith"); !errors.Is(err, identity.ErrInvalidParticipant) {
		t.Fatalf("CreateRoom(alice.smith) error = %v, want ErrInvalidParticipant", err)
	}
	if _, err := s.Read(ctx, roomtimer.TimerPath("ABC123")); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("timer left behind: %v", err)
	}

	room := &models.Room{Code: "ABC123", CreatedBy: "bob smith", CreatedAt: clock.Now()}
	if err := app.repo.CreateRoom(ctx, room); err == nil {
		t.Fatal("repository CreateRoom accepted an unusable creator")
	}
	for _, path := range []string{roomtimer.TimerPath("ABC123"), roomtimer.TimerSettingsPath("ABC123")} {
		if _, err := s.Read(ctx, path); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Read(%s) error = %v, want ErrNotFound", path, err)
		}
	}

	if _, err := app.CreateRoom(ctx, "host-1"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := app.JoinRoom(ctx, "ABC123", "a/b"); !errors.Is(err, identity.ErrInvalidParticipant) {
		t.Errorf("JoinRoom(a/b) error = %v, want ErrInvalidParticipant", err)
	}
	if _, err := app.JoinRoom(ctx, "ABC123", ""); !errors.Is(err, identity.ErrNoParticipant) {
		t.Errorf("JoinRoom(\"\") error = %v, want ErrNoParticipant", err)
	}
	if len(notifier.joins) != 0 {
		t.Errorf("joins = %v, want none", notifier.joins)
	}
}

func TestGetTimerReconcilesAtServerTime(t *testing.T) {
	ctx := context.Background()
	app, s, clock, _ := newTestApp(t)
	app.newCode = func() (string, error) { return "TMR001", nil }

	if _, err := app.CreateRoom(ctx, "host-1"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	view, err := app.GetTimer(ctx, "TMR001")
	if err != nil {
		t.Fatalf("GetTimer: %v", err)
	}
	if view.Running || view.RemainingMs != (25*time.Minute).Milliseconds() {
		t.Errorf("idle view = %+v", view)
	}

	state := models.TimerState{Running: true, EndTime: clock.Now().Add(90 * time.Second).UnixMilli(), IsBreak: true}
	if err := roomtimer.NewTimerStore(s, "TMR001").WriteTimer(ctx, state); err != nil {
		t.Fatalf("WriteTimer: %v", err)
	}
	clock.Advance(30 * time.Second)

	view, err = app.GetTimer(ctx, "TMR001")
	if err != nil {
		t.Fatalf("GetTimer: %v", err)
	}
	if !view.Running || view.Phase != models.PhaseBreak || view.RemainingMs != 60_000 || view.Expired {
		t.Errorf("running view = %+v", view)
	}

	clock.Advance(time.Minute)
	view, _ = app.GetTimer(ctx, "TMR001")
	if !view.Expired || view.RemainingMs != 0 {
		t.Errorf("expired view = %+v", view)
	}
}
