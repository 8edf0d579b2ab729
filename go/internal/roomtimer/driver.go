package roomtimer

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
)

// TickInterval is how often an active countdown is re-evaluated.
const TickInterval = time.Second

// DriverConfig configures a CountdownDriver.
type DriverConfig struct {
	RoomID    string
	Authority Authority
	Settings  models.TimerSettings
	Clock     clockwork.Clock
	Sink      DisplaySink
	// OnExpiry is called with the expired snapshot when a host observes
	// expiry. It is never called for non-hosts.
	OnExpiry func(models.TimerState)
}

// CountdownDriver turns snapshots into display updates. It owns at most one
// ticker, replaced on every snapshot and released whenever the countdown is
// not active.
//
// The driver is not safe for concurrent use; a Session calls it from a single
// goroutine and selects on C for ticks.
type CountdownDriver struct {
	roomID     string
	authority  Authority
	settings   models.TimerSettings
	reconciler *ClockReconciler
	clock      clockwork.Clock
	sink       DisplaySink
	onExpiry   func(models.TimerState)

	state    models.TimerState
	hasState bool
	ticker   clockwork.Ticker
	last     Display
}

// NewCountdownDriver creates an idle driver.
func NewCountdownDriver(cfg DriverConfig) *CountdownDriver {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CountdownDriver{
		roomID:     cfg.RoomID,
		authority:  cfg.Authority,
		settings:   cfg.Settings,
		reconciler: NewClockReconciler(clock),
		clock:      clock,
		sink:       cfg.Sink,
		onExpiry:   cfg.OnExpiry,
	}
}

// Observe replaces the current snapshot, cancelling any scheduled
// re-evaluation before evaluating the new one.
func (d *CountdownDriver) Observe(state models.TimerState) {
	d.stopTicker()
	d.state = state
	d.hasState = true
	d.evaluate(true)
}

// Tick re-evaluates the current snapshot. Call it when C fires.
func (d *CountdownDriver) Tick() {
	if !d.hasState {
		return
	}
	d.evaluate(false)
}

// C returns the tick channel, or nil while no countdown is active so that a
// select on it blocks forever.
func (d *CountdownDriver) C() <-chan time.Time {
	if d.ticker == nil {
		return nil
	}
	return d.ticker.Chan()
}

// SetSettings records new durations. They only change what an idle timer
// shows; an active countdown keeps its end time.
func (d *CountdownDriver) SetSettings(settings models.TimerSettings) {
	d.settings = settings
	if !d.hasState {
		return
	}
	if out := d.reconciler.Evaluate(d.state); out.Kind == Idle {
		d.render(out)
	}
}

// Settings returns the durations the driver currently displays with.
func (d *CountdownDriver) Settings() models.TimerSettings {
	return d.settings
}

// State returns the last observed snapshot.
func (d *CountdownDriver) State() models.TimerState {
	return d.state
}

// Last returns the most recent display that was rendered.
func (d *CountdownDriver) Last() Display {
	return d.last
}

// Stop releases the ticker.
func (d *CountdownDriver) Stop() {
	d.stopTicker()
}

// evaluate reconciles the current snapshot and renders it. The ticker is
// armed before rendering, so a rendered active display always has a live
// ticker behind it.
func (d *CountdownDriver) evaluate(arm bool) {
	out := d.reconciler.Evaluate(d.state)
	if out.Kind == Active {
		if arm && d.ticker == nil {
			d.ticker = d.clock.NewTicker(TickInterval)
		}
	} else {
		d.stopTicker()
	}
	d.render(out)

	if out.Kind == Expired && d.authority.IsHost && d.onExpiry != nil {
		d.onExpiry(d.state)
	}
}

func (d *CountdownDriver) render(out Outcome) {
	d.last = buildDisplay(d.roomID, d.authority, d.settings, d.state, out)
	if d.sink != nil {
		d.sink.Render(d.last)
	}
}

func (d *CountdownDriver) stopTicker() {
	if d.ticker == nil {
		return
	}
	d.ticker.Stop()
	d.ticker = nil
}
