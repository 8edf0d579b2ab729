package roomtimer

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
)

func TestReconcile(t *testing.T) {
	endTime := t0.Add(10 * time.Second).UnixMilli()

	tests := []struct {
		name  string
		state models.TimerState
		now   time.Time
		want  Outcome
	}{
		{
			name:  "idle fresh phase",
			state: models.TimerState{EndTime: endTime},
			now:   t0,
			want:  Outcome{Kind: Idle},
		},
		{
			name:  "idle paused keeps remainder",
			state: models.TimerState{EndTime: endTime, RemainingMs: 4200},
			now:   t0.Add(time.Hour),
			want:  Outcome{Kind: Idle, Remaining: 4200 * time.Millisecond},
		},
		{
			name:  "active",
			state: models.TimerState{Running: true, EndTime: endTime},
			now:   t0.Add(2500 * time.Millisecond),
			want:  Outcome{Kind: Active, Remaining: 7500 * time.Millisecond},
		},
		{
			name:  "one millisecond left",
			state: models.TimerState{Running: true, EndTime: endTime},
			now:   t0.Add(10*time.Second - time.Millisecond),
			want:  Outcome{Kind: Active, Remaining: time.Millisecond},
		},
		{
			name:  "expired exactly at end time",
			state: models.TimerState{Running: true, EndTime: endTime},
			now:   t0.Add(10 * time.Second),
			want:  Outcome{Kind: Expired},
		},
		{
			name:  "expired long ago",
			state: models.TimerState{Running: true, EndTime: endTime},
			now:   t0.Add(24 * time.Hour),
			want:  Outcome{Kind: Expired},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reconcile(tt.state, tt.now); got != tt.want {
				t.Errorf("Reconcile() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReconcileIsMonotonic(t *testing.T) {
	state := models.TimerState{Running: true, EndTime: t0.Add(3 * time.Second).UnixMilli()}

	prev := time.Duration(1<<63 - 1)
	expiredAt := time.Time{}
	for now := t0; now.Before(t0.Add(5 * time.Second)); now = now.Add(137 * time.Millisecond) {
		out := Reconcile(state, now)
		if out.Kind == Expired {
			if expiredAt.IsZero() {
				expiredAt = now
			}
			continue
		}
		if !expiredAt.IsZero() {
			t.Fatalf("active again at %v after expiring at %v", now, expiredAt)
		}
		if out.Remaining > prev {
			t.Fatalf("remaining increased from %v to %v", prev, out.Remaining)
		}
		prev = out.Remaining
	}

	if expiredAt.IsZero() {
		t.Fatal("never expired")
	}
	if expiredAt.UnixMilli() < state.EndTime {
		t.Errorf("expired at %d, before end time %d", expiredAt.UnixMilli(), state.EndTime)
	}
}

func TestReconcileRedeliveryIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	r := NewClockReconciler(clock)
	state := models.TimerState{Running: true, EndTime: t0.Add(time.Minute).UnixMilli()}

	clock.Advance(12 * time.Second)
	first := r.Evaluate(state)
	duplicate := state
	second := r.Evaluate(duplicate)

	if first != second {
		t.Errorf("duplicate snapshot reconciled differently: %+v vs %+v", first, second)
	}
	if first.Kind != Active || first.Remaining != 48*time.Second {
		t.Errorf("Evaluate() = %+v, want active 48s", first)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{time.Millisecond, "00:01"},
		{999 * time.Millisecond, "00:01"},
		{time.Second, "00:01"},
		{59*time.Second + time.Millisecond, "01:00"},
		{5 * time.Minute, "05:00"},
		{25*time.Minute - 500*time.Millisecond, "25:00"},
		{120 * time.Minute, "120:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.in); got != tt.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
