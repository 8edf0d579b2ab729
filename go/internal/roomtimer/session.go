package roomtimer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

// CommandKind names a user action on the timer.
type CommandKind string

const (
	CommandStart          CommandKind = "start"
	CommandPause          CommandKind = "pause"
	CommandReset          CommandKind = "reset"
	CommandUpdateSettings CommandKind = "update_settings"
)

// Command is a user action submitted to a Session. Settings updates carry
// either parsed minutes or the raw form text; text wins when present.
type Command struct {
	Kind         CommandKind `json:"kind"`
	WorkMinutes  int         `json:"work_minutes,omitempty"`
	BreakMinutes int         `json:"break_minutes,omitempty"`
	WorkText     string      `json:"work_text,omitempty"`
	BreakText    string      `json:"break_text,omitempty"`
}

const (
	defaultResubscribeWait = 2 * time.Second
	commandBuffer          = 16
)

// SessionConfig configures a Session.
type SessionConfig struct {
	Store         store.Store
	RoomID        string
	ParticipantID string
	Sink          DisplaySink
	Clock         clockwork.Clock
	ExpiryPolicy  ExpiryPolicy
	// ResubscribeWait is the pause before a lost subscription is reopened.
	ResubscribeWait time.Duration
}

// Session is one participant's live view of a room timer. Run owns all
// state: it resolves authority, follows the timer and settings documents and
// drives the countdown, all from a single goroutine. Writes are dispatched in
// the background and their failures come back as notices.
type Session struct {
	cfg      SessionConfig
	commands chan Command
	results  chan writeResult
	wg       sync.WaitGroup

	authority Authority
	timers    *TimerStore
	settings  *SettingsManager
	scheduler *PhaseScheduler
	driver    *CountdownDriver
}

type writeResult struct {
	action string
	err    error
}

// NewSession validates cfg and prepares a session. The room code is
// normalized before use.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Store == nil {
		return nil, errors.New("roomtimer: session requires a store")
	}
	cfg.RoomID = models.NormalizeRoomCode(cfg.RoomID)
	if !models.ValidRoomCode(cfg.RoomID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRoomID, cfg.RoomID)
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.ResubscribeWait <= 0 {
		cfg.ResubscribeWait = defaultResubscribeWait
	}
	if cfg.ExpiryPolicy == "" {
		cfg.ExpiryPolicy = ExpiryAutoContinue
	}
	return &Session{
		cfg:      cfg,
		commands: make(chan Command, commandBuffer),
		results:  make(chan writeResult, commandBuffer),
	}, nil
}

// RoomID returns the normalized room code.
func (s *Session) RoomID() string {
	return s.cfg.RoomID
}

// Submit queues a command without blocking.
func (s *Session) Submit(cmd Command) error {
	select {
	case s.commands <- cmd:
		return nil
	default:
		return ErrSessionBusy
	}
}

// Run follows the room until ctx is cancelled. It returns ErrInvalidRoomID
// or ErrRoomNotFound when the room cannot be entered; every other failure is
// reported to the sink and retried. All timers and subscriptions are released
// before Run returns.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.wg.Wait()
	}()

	logger := log.With().
		Str("room_id", s.cfg.RoomID).
		Str("participant_id", s.cfg.ParticipantID).
		Logger()

	auth, err := NewAuthorityResolver(s.cfg.Store).Resolve(ctx, s.cfg.ParticipantID, s.cfg.RoomID)
	if errors.Is(err, ErrInvalidRoomID) || errors.Is(err, ErrRoomNotFound) {
		return err
	}
	if err != nil {
		s.notify(NoticeWarning, "Could not verify the room host; timer controls are disabled")
	}
	s.authority = auth
	s.timers = NewTimerStore(s.cfg.Store, s.cfg.RoomID)
	s.settings = NewSettingsManager(s.timers, auth)
	s.scheduler = NewPhaseScheduler(s.timers, auth, s.cfg.Clock, s.cfg.ExpiryPolicy)

	settings, err := s.settings.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("using default timer settings")
	}

	s.driver = NewCountdownDriver(DriverConfig{
		RoomID:    s.cfg.RoomID,
		Authority: auth,
		Settings:  settings,
		Clock:     s.cfg.Clock,
		Sink:      s.cfg.Sink,
		OnExpiry:  func(expired models.TimerState) { s.dispatchExpiry(ctx, expired) },
	})
	defer s.driver.Stop()

	logger.Info().Bool("is_host", auth.IsHost).Msg("timer session started")
	defer logger.Info().Msg("timer session ended")

	timerFeed := newFeed("timer", s.timers.SubscribeTimer)
	settingsFeed := newFeed("settings", s.timers.SubscribeSettings)
	defer timerFeed.close()
	defer settingsFeed.close()

	s.open(ctx, timerFeed)
	s.open(ctx, settingsFeed)

	for {
		select {
		case <-ctx.Done():
			return nil

		case snap, ok := <-timerFeed.updates():
			if !ok {
				s.lost(ctx, timerFeed)
				continue
			}
			state, err := DecodeTimer(snap.Value)
			if err != nil {
				logger.Warn().Err(err).Msg("ignoring unreadable timer snapshot")
				continue
			}
			s.driver.Observe(state)

		case snap, ok := <-settingsFeed.updates():
			if !ok {
				s.lost(ctx, settingsFeed)
				continue
			}
			settings, err := DecodeSettings(snap.Value)
			if err != nil {
				logger.Warn().Err(err).Msg("ignoring unreadable settings snapshot")
				continue
			}
			s.driver.SetSettings(settings)

		case <-timerFeed.retry:
			timerFeed.retry = nil
			s.open(ctx, timerFeed)

		case <-settingsFeed.retry:
			settingsFeed.retry = nil
			s.open(ctx, settingsFeed)

		case <-s.driver.C():
			s.driver.Tick()

		case cmd := <-s.commands:
			s.handle(ctx, cmd)

		case res := <-s.results:
			if res.err != nil {
				logger.Warn().Err(res.err).Str("action", res.action).Msg("timer write failed")
				s.notify(NoticeError, fmt.Sprintf("Could not %s the timer: %v", res.action, res.err))
			}
		}
	}
}

func (s *Session) handle(ctx context.Context, cmd Command) {
	if !s.authority.IsHost {
		log.Debug().
			Str("room_id", s.cfg.RoomID).
			Str("participant_id", s.cfg.ParticipantID).
			Str("command", string(cmd.Kind)).
			Msg("ignoring command from non-host")
		s.notify(NoticeWarning, "Only the host can control the timer")
		return
	}

	current := s.driver.State()
	settings := s.driver.Settings()

	switch cmd.Kind {
	case CommandStart:
		s.dispatch(ctx, "start", func(ctx context.Context) error {
			_, err := s.scheduler.Start(ctx, current, settings)
			return err
		})
	case CommandPause:
		s.dispatch(ctx, "pause", func(ctx context.Context) error {
			_, err := s.scheduler.Pause(ctx, current)
			return err
		})
	case CommandReset:
		s.dispatch(ctx, "reset", func(ctx context.Context) error {
			_, err := s.scheduler.Reset(ctx, current)
			return err
		})
	case CommandUpdateSettings:
		next := models.TimerSettings{WorkMinutes: cmd.WorkMinutes, BreakMinutes: cmd.BreakMinutes}
		var err error
		if cmd.WorkText != "" || cmd.BreakText != "" {
			next, err = ParseSettings(cmd.WorkText, cmd.BreakText)
		} else {
			err = ValidateSettings(next)
		}
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.notifyNotice(Notice{
				Level:       NoticeError,
				Message:     "Invalid timer settings",
				FieldErrors: verr.FieldErrors,
			})
			return
		}
		s.dispatch(ctx, "update settings for", func(ctx context.Context) error {
			return s.settings.Update(ctx, next)
		})
	default:
		s.notify(NoticeWarning, fmt.Sprintf("Unknown command %q", cmd.Kind))
	}
}

// dispatchExpiry is called synchronously by the driver from the run loop.
func (s *Session) dispatchExpiry(ctx context.Context, expired models.TimerState) {
	settings := s.driver.Settings()
	s.dispatch(ctx, "switch phase of", func(ctx context.Context) error {
		_, _, err := s.scheduler.OnExpiry(ctx, expired, settings)
		return err
	})
}

func (s *Session) dispatch(ctx context.Context, action string, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := fn(ctx)
		if err != nil && ctx.Err() != nil {
			return
		}
		select {
		case s.results <- writeResult{action: action, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) open(ctx context.Context, f *feed) {
	if err := f.open(ctx); err != nil {
		log.Warn().Err(err).Str("room_id", s.cfg.RoomID).Str("feed", f.name).Msg("subscribe failed")
		s.notify(NoticeWarning, "Lost connection to the room, retrying")
		f.retry = s.cfg.Clock.After(s.cfg.ResubscribeWait)
	}
}

func (s *Session) lost(ctx context.Context, f *feed) {
	err := f.end()
	if ctx.Err() != nil {
		return
	}
	log.Warn().Err(err).Str("room_id", s.cfg.RoomID).Str("feed", f.name).Msg("subscription ended")
	s.notify(NoticeWarning, "Lost connection to the room, retrying")
	f.retry = s.cfg.Clock.After(s.cfg.ResubscribeWait)
}

func (s *Session) notify(level NoticeLevel, message string) {
	s.notifyNotice(Notice{Level: level, Message: message})
}

func (s *Session) notifyNotice(n Notice) {
	if s.cfg.Sink != nil {
		s.cfg.Sink.Notify(n)
	}
}

// feed is a restartable subscription handle.
type feed struct {
	name      string
	subscribe func(context.Context) (store.Subscription, error)
	sub       store.Subscription
	retry     <-chan time.Time
}

func newFeed(name string, subscribe func(context.Context) (store.Subscription, error)) *feed {
	return &feed{name: name, subscribe: subscribe}
}

func (f *feed) open(ctx context.Context) error {
	sub, err := f.subscribe(ctx)
	if err != nil {
		return err
	}
	f.sub = sub
	return nil
}

// updates returns nil while the feed is down.
func (f *feed) updates() <-chan store.Snapshot {
	if f.sub == nil {
		return nil
	}
	return f.sub.Updates()
}

func (f *feed) end() error {
	if f.sub == nil {
		return nil
	}
	err := f.sub.Err()
	f.sub = nil
	return err
}

func (f *feed) close() {
	if f.sub != nil {
		_ = f.sub.Close()
		f.sub = nil
	}
}
