package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ysatyam-3107/studentsync/go/internal/identity"
	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
	"github.com/ysatyam-3107/studentsync/go/internal/rooms"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
	"github.com/ysatyam-3107/studentsync/go/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	roomCode := flag.String("room", "", "room code to join")
	create := flag.Bool("create", false, "create a new room and host it")
	backend := flag.String("store", "nats", "store backend: nats to share a room, or memory for a solo session in this process only")
	natsURL := flag.String("nats", "", "NATS server URL (overrides preferences)")
	participant := flag.String("participant", "", "participant id (overrides preferences)")
	prefsPath := flag.String("prefs", tui.DefaultPrefsPath(), "preferences file")
	logPath := flag.String("log", "", "write logs to this file")
	expiry := flag.String("expiry", string(roomtimer.ExpiryAutoContinue), "phase expiry policy: auto_continue or pause")
	flag.Parse()

	closeLog, err := setupLogging(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "studysync: %v\n", err)
		return 1
	}
	defer closeLog()

	if err := runClient(clientOptions{
		roomCode:    *roomCode,
		create:      *create,
		backend:     *backend,
		natsURL:     *natsURL,
		participant: *participant,
		prefsPath:   *prefsPath,
		expiry:      *expiry,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "studysync: %v\n", err)
		return 1
	}
	return 0
}

type clientOptions struct {
	roomCode    string
	create      bool
	backend     string
	natsURL     string
	participant string
	prefsPath   string
	expiry      string
}

// setupLogging sends logs to a file since Bubble Tea owns the terminal.
func setupLogging(path string) (func(), error) {
	if path == "" {
		log.Logger = zerolog.New(io.Discard)
		return func() {}, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.Logger = zerolog.New(file).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	return func() { _ = file.Close() }, nil
}

func runClient(opts clientOptions) error {
	if opts.create == (opts.roomCode != "") {
		return errors.New("pass exactly one of -room CODE or -create")
	}
	policy, err := roomtimer.ParseExpiryPolicy(opts.expiry)
	if err != nil {
		return err
	}

	prefs, err := tui.LoadPrefs(opts.prefsPath)
	if err != nil {
		return err
	}
	participantID, err := resolveParticipant(opts, &prefs)
	if err != nil {
		return err
	}
	if opts.natsURL != "" {
		prefs.NATSURL = opts.natsURL
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sharedStore, err := openStore(ctx, opts.backend, prefs.NATSURL)
	if err != nil {
		return err
	}
	defer sharedStore.Close()

	app := rooms.NewApp(rooms.NewRepository(sharedStore), nil, nil)
	var room *models.Room
	if opts.create {
		room, err = app.CreateRoom(ctx, participantID)
	} else {
		room, err = app.JoinRoom(ctx, opts.roomCode, participantID)
	}
	if err != nil {
		return err
	}

	sink := &tui.ProgramSink{}
	session, err := roomtimer.NewSession(roomtimer.SessionConfig{
		Store:         sharedStore,
		RoomID:        room.Code,
		ParticipantID: participantID,
		Sink:          sink,
		ExpiryPolicy:  policy,
	})
	if err != nil {
		return err
	}

	program := tea.NewProgram(tui.New(tui.Options{
		RoomID:    room.Code,
		Session:   session,
		Prefs:     prefs,
		PrefsPath: opts.prefsPath,
	}), tea.WithAltScreen(), tea.WithContext(ctx))
	sink.Attach(program)

	sessionCtx, stopSession := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := session.Run(sessionCtx)
		if err != nil {
			log.Error().Err(err).Str("room_id", room.Code).Msg("timer session stopped")
		}
		program.Send(tui.SessionEnded(err))
	}()

	final, runErr := program.Run()
	stopSession()
	<-done

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal ui: %w", runErr)
	}
	if m, ok := final.(tui.Model); ok && m.Err() != nil {
		return m.Err()
	}
	fmt.Printf("Left room %s\n", room.Code)
	return nil
}

// resolveParticipant picks the participant id from the flag, then the
// preferences file, and otherwise mints and saves a new one.
func resolveParticipant(opts clientOptions, prefs *tui.Prefs) (string, error) {
	if opts.participant != "" {
		return identity.Static(opts.participant).CurrentParticipantID()
	}
	if id, err := identity.Static(prefs.ParticipantID).CurrentParticipantID(); err == nil {
		return id, nil
	}
	prefs.ParticipantID = identity.NewParticipantID()
	if err := tui.SavePrefs(opts.prefsPath, *prefs); err != nil {
		log.Warn().Err(err).Msg("could not save participant id")
	}
	return prefs.ParticipantID, nil
}

func openStore(ctx context.Context, backend, natsURL string) (store.Store, error) {
	switch backend {
	case "memory":
		log.Warn().Msg("memory store is local to this process; other participants cannot join")
		return store.NewMemoryStore(), nil
	case "nats":
		cfg := store.DefaultNATSConfig()
		cfg.URL = natsURL
		return store.NewNATSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
