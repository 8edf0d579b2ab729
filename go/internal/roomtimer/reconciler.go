package roomtimer

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
)

// OutcomeKind classifies a reconciled snapshot.
type OutcomeKind int

const (
	Idle OutcomeKind = iota
	Active
	Expired
)

func (k OutcomeKind) String() string {
	switch k {
	case Active:
		return "active"
	case Expired:
		return "expired"
	default:
		return "idle"
	}
}

// Outcome is the result of reconciling a snapshot against the local clock.
// Remaining is set for Active, and for Idle when a paused remainder exists.
type Outcome struct {
	Kind      OutcomeKind
	Remaining time.Duration
}

// Reconcile derives the remaining time of state at now.
//
// Remaining time is always recomputed from the absolute end time, never
// decremented locally, so repeated or late evaluations of the same snapshot
// converge on the same answer no matter how many ticks were missed.
func Reconcile(state models.TimerState, now time.Time) Outcome {
	if !state.Running {
		out := Outcome{Kind: Idle}
		if state.RemainingMs > 0 {
			out.Remaining = time.Duration(state.RemainingMs) * time.Millisecond
		}
		return out
	}

	remainingMs := state.EndTime - now.UnixMilli()
	if remainingMs <= 0 {
		return Outcome{Kind: Expired}
	}
	return Outcome{Kind: Active, Remaining: time.Duration(remainingMs) * time.Millisecond}
}

// ClockReconciler reconciles snapshots against an injected clock.
type ClockReconciler struct {
	clock clockwork.Clock
}

// NewClockReconciler creates a reconciler reading time from clock.
func NewClockReconciler(clock clockwork.Clock) *ClockReconciler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ClockReconciler{clock: clock}
}

// Evaluate reconciles state at the clock's current time.
func (r *ClockReconciler) Evaluate(state models.TimerState) Outcome {
	return Reconcile(state, r.clock.Now())
}
