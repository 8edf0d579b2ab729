package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"

	"github.com/ysatyam-3107/studentsync/go/internal/sqlutil"
)

// PostgresSchema creates the table backing PostgresStore.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS shared_state (
    path       TEXT PRIMARY KEY,
    value      JSONB,
    revision   BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type PostgresConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel name to LISTEN on
	FallbackInterval time.Duration // How often to re-read watched paths
	PingInterval     time.Duration
}

func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		DatabaseURL:      "",
		NotifyChannel:    "shared_state_changes",
		FallbackInterval: 30 * time.Second,
		PingInterval:     90 * time.Second,
	}
}

// PostgresStore keeps the shared state in one table. Every write notifies the
// changed path on a LISTEN/NOTIFY channel; a single listener per store re-reads
// the row and fans it out to local subscribers.
type PostgresStore struct {
	db       *sql.DB
	listener *pq.Listener
	cfg      PostgresConfig

	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	closed bool

	cancel context.CancelFunc
	done   chan struct{}
}

// withDefaults fills empty or non-positive fields from DefaultPostgresConfig.
func (c PostgresConfig) withDefaults() PostgresConfig {
	def := DefaultPostgresConfig()
	if c.NotifyChannel == "" {
		c.NotifyChannel = def.NotifyChannel
	}
	if c.FallbackInterval <= 0 {
		c.FallbackInterval = def.FallbackInterval
	}
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	return c
}

// NewPostgresStore starts listening for change notifications. The schema must
// already exist (see tools/migrate).
func NewPostgresStore(db *sql.DB, cfg PostgresConfig) (*PostgresStore, error) {
	cfg = cfg.withDefaults()
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &PostgresStore{
		db:       db,
		listener: l,
		cfg:      cfg,
		subs:     make(map[string]map[*subscription]struct{}),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.run(ctx)

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for shared state notifications")
	return s, nil
}

// Read returns the value stored at path.
func (s *PostgresStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	snap, err := s.fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, ErrNotFound
	}
	return snap.Value, nil
}

func (s *PostgresStore) fetch(ctx context.Context, path string) (Snapshot, error) {
	var (
		value    pqtype.NullRawMessage
		revision int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, revision FROM shared_state WHERE path = $1`, path,
	).Scan(&value, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{Path: path}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", path, err)
	}

	snap := Snapshot{Path: path, Revision: uint64(revision)}
	if value.Valid {
		snap.Value = value.RawMessage
	}
	return snap, nil
}

// Write upserts the row for path and notifies listeners on commit.
func (s *PostgresStore) Write(ctx context.Context, path string, value []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	err := sqlutil.Run(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO shared_state (path, value) VALUES ($1, $2)
            ON CONFLICT (path) DO UPDATE
               SET value = EXCLUDED.value,
                   revision = shared_state.revision + 1,
                   updated_at = now()
        `, path, pqtype.NullRawMessage{RawMessage: value, Valid: value != nil})
		if err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, s.cfg.NotifyChannel, path); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Subscribe registers a subscriber and delivers the current row.
func (s *PostgresStore) Subscribe(ctx context.Context, path string) (Subscription, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	var sub *subscription
	sub = newSubscription(func() { s.unsubscribe(path, sub) })
	if s.subs[path] == nil {
		s.subs[path] = make(map[*subscription]struct{})
	}
	s.subs[path][sub] = struct{}{}
	s.mu.Unlock()

	closeOnDone(ctx, sub)

	snap, err := s.fetch(ctx, path)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}
	sub.offer(snap)
	return sub, nil
}

func (s *PostgresStore) unsubscribe(path string, sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if subs, ok := s.subs[path]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(s.subs, path)
		}
	}
}

func (s *PostgresStore) run(ctx context.Context) {
	defer close(s.done)

	pingTicker := time.NewTicker(s.cfg.PingInterval)
	fallbackTicker := time.NewTicker(s.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case note := <-s.listener.Notify:
			if note == nil {
				// nil notification means the connection was re-established;
				// anything could have changed meanwhile.
				s.refreshAll(ctx)
				continue
			}
			s.refresh(ctx, note.Extra)
		case <-fallbackTicker.C:
			s.refreshAll(ctx)
		case <-pingTicker.C:
			if err := s.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (s *PostgresStore) watched(path string) []*subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := make([]*subscription, 0, len(s.subs[path]))
	for sub := range s.subs[path] {
		subs = append(subs, sub)
	}
	return subs
}

func (s *PostgresStore) refresh(ctx context.Context, path string) {
	subs := s.watched(path)
	if len(subs) == 0 {
		return
	}

	snap, err := s.fetch(ctx, path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to refresh watched path")
		return
	}
	for _, sub := range subs {
		sub.offer(snap)
	}
}

func (s *PostgresStore) refreshAll(ctx context.Context) {
	s.mu.Lock()
	paths := make([]string, 0, len(s.subs))
	for path := range s.subs {
		paths = append(paths, path)
	}
	s.mu.Unlock()

	for _, path := range paths {
		s.refresh(ctx, path)
	}
}

// Close stops the listener and ends every subscription.
func (s *PostgresStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var all []*subscription
	for _, subs := range s.subs {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	s.mu.Unlock()

	s.cancel()
	<-s.done
	for _, sub := range all {
		sub.fail(ErrClosed)
	}
	return s.listener.Close()
}
