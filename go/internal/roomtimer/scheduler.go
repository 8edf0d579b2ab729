package roomtimer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
)

// ExpiryPolicy selects what the host does when a phase runs out.
type ExpiryPolicy string

const (
	// ExpiryAutoContinue flips the phase and starts it immediately.
	ExpiryAutoContinue ExpiryPolicy = "auto_continue"
	// ExpiryPause flips the phase and waits for a manual Start.
	ExpiryPause ExpiryPolicy = "pause"
)

// ParseExpiryPolicy accepts the configuration spelling of a policy. An empty
// string selects ExpiryAutoContinue.
func ParseExpiryPolicy(s string) (ExpiryPolicy, error) {
	switch ExpiryPolicy(s) {
	case "", ExpiryAutoContinue:
		return ExpiryAutoContinue, nil
	case ExpiryPause:
		return ExpiryPause, nil
	default:
		return "", fmt.Errorf("unknown expiry policy %q", s)
	}
}

// PhaseScheduler performs the host's timer writes. Every method takes the
// latest observed snapshot and returns the state it wrote; the returned state
// is only what was sent, subscribers learn about it from the store.
type PhaseScheduler struct {
	timers    *TimerStore
	authority Authority
	clock     clockwork.Clock
	policy    ExpiryPolicy

	// endTime of the last expiry this scheduler acted on
	lastExpiredMu sync.Mutex
	lastExpired   int64
	hasExpired    bool
}

// NewPhaseScheduler creates a scheduler acting with the given authority.
func NewPhaseScheduler(timers *TimerStore, authority Authority, clock clockwork.Clock, policy ExpiryPolicy) *PhaseScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if policy == "" {
		policy = ExpiryAutoContinue
	}
	return &PhaseScheduler{
		timers:    timers,
		authority: authority,
		clock:     clock,
		policy:    policy,
	}
}

// Start runs the current phase. A paused phase resumes from its remainder;
// a fresh phase is seeded with the configured duration. Starting a timer that
// is already counting down is a no-op.
func (p *PhaseScheduler) Start(ctx context.Context, current models.TimerState, settings models.TimerSettings) (models.TimerState, error) {
	if !p.authority.IsHost {
		return current, ErrNotHost
	}

	now := p.clock.Now()
	if Reconcile(current, now).Kind == Active {
		return current, nil
	}

	remaining := settings.Duration(current.IsBreak)
	if !current.Running && current.RemainingMs > 0 {
		remaining = time.Duration(current.RemainingMs) * time.Millisecond
	}

	next := models.TimerState{
		Running: true,
		EndTime: now.Add(remaining).UnixMilli(),
		IsBreak: current.IsBreak,
	}
	if err := p.write(ctx, "start", next); err != nil {
		return current, err
	}
	return next, nil
}

// Pause stops the countdown and records the remainder so Start can resume
// it. The stale end time is left in place.
func (p *PhaseScheduler) Pause(ctx context.Context, current models.TimerState) (models.TimerState, error) {
	if !p.authority.IsHost {
		return current, ErrNotHost
	}

	out := Reconcile(current, p.clock.Now())
	if out.Kind != Active {
		return current, nil
	}

	next := models.TimerState{
		Running:     false,
		EndTime:     current.EndTime,
		IsBreak:     current.IsBreak,
		RemainingMs: out.Remaining.Milliseconds(),
	}
	if err := p.write(ctx, "pause", next); err != nil {
		return current, err
	}
	return next, nil
}

// Reset stops the timer and forgets any remainder, keeping the phase.
func (p *PhaseScheduler) Reset(ctx context.Context, current models.TimerState) (models.TimerState, error) {
	if !p.authority.IsHost {
		return current, ErrNotHost
	}

	next := models.TimerState{IsBreak: current.IsBreak}
	if err := p.write(ctx, "reset", next); err != nil {
		return current, err
	}
	return next, nil
}

// OnExpiry switches to the other phase once the observed snapshot has run
// out. It reports whether a write was made.
//
// Expiry is handled at most once per end time: re-delivery of the same
// expired snapshot, or repeated ticks before the switch is observed, do not
// produce further writes. Snapshots that have not actually expired at the
// scheduler's clock are ignored.
func (p *PhaseScheduler) OnExpiry(ctx context.Context, expired models.TimerState, settings models.TimerSettings) (models.TimerState, bool, error) {
	if !p.authority.IsHost {
		return expired, false, ErrNotHost
	}

	now := p.clock.Now()
	if Reconcile(expired, now).Kind != Expired {
		return expired, false, nil
	}

	// End-time idempotency guard
	p.lastExpiredMu.Lock()
	if p.hasExpired && p.lastExpired == expired.EndTime {
		p.lastExpiredMu.Unlock()
		log.Debug().
			Str("room_id", p.timers.RoomID()).
			Int64("end_time", expired.EndTime).
			Msg("skipping duplicate expiry - already handled for this end time")
		return expired, false, nil
	}
	p.lastExpired = expired.EndTime
	p.hasExpired = true
	p.lastExpiredMu.Unlock()

	isBreak := !expired.IsBreak
	next := models.TimerState{IsBreak: isBreak}
	if p.policy == ExpiryAutoContinue {
		next.Running = true
		next.EndTime = now.Add(settings.Duration(isBreak)).UnixMilli()
	}

	if err := p.write(ctx, "phase switch", next); err != nil {
		// Let a later delivery of the same snapshot try again.
		p.lastExpiredMu.Lock()
		if p.hasExpired && p.lastExpired == expired.EndTime {
			p.hasExpired = false
		}
		p.lastExpiredMu.Unlock()
		return expired, false, err
	}

	log.Info().
		Str("room_id", p.timers.RoomID()).
		Str("phase", string(next.Phase())).
		Bool("running", next.Running).
		Msg("phase switched")
	return next, true, nil
}

func (p *PhaseScheduler) write(ctx context.Context, action string, next models.TimerState) error {
	if err := p.timers.WriteTimer(ctx, next); err != nil {
		log.Error().
			Err(err).
			Str("room_id", p.timers.RoomID()).
			Str("action", action).
			Msg("timer write failed")
		return err
	}
	log.Debug().
		Str("room_id", p.timers.RoomID()).
		Str("action", action).
		Bool("running", next.Running).
		Int64("end_time", next.EndTime).
		Bool("is_break", next.IsBreak).
		Msg("timer written")
	return nil
}
