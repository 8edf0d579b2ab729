package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds configuration for the JetStream key-value backend.
type NATSConfig struct {
	URL           string
	Bucket        string
	History       uint8 // revisions kept per key
	Replicas      int
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default JetStream key-value configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Bucket:        "STUDYSYNC_ROOMS",
		History:       1,
		Replicas:      1,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSStore keeps the shared state in a JetStream key-value bucket. Paths map
// to keys by replacing '/' with '.', so rooms/ABC123/timer is stored under
// rooms.ABC123.timer.
type NATSStore struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	kv     jetstream.KeyValue
	config NATSConfig
}

// NewNATSStore connects to NATS and creates the bucket if it does not exist.
func NewNATSStore(ctx context.Context, cfg NATSConfig) (*NATSStore, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "Shared study room state",
		History:     cfg.History,
		Storage:     jetstream.FileStorage,
		Replicas:    cfg.Replicas,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure key-value bucket: %w", err)
	}

	log.Info().
		Str("url", nc.ConnectedUrl()).
		Str("bucket", cfg.Bucket).
		Msg("connected NATS key-value store")

	return &NATSStore{nc: nc, js: js, kv: kv, config: cfg}, nil
}

func natsKey(path string) string {
	return strings.ReplaceAll(path, "/", ".")
}

// Read returns the latest value stored under path.
func (s *NATSStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	entry, err := s.kv.Get(ctx, natsKey(path))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return entry.Value(), nil
}

// Write puts value under path.
func (s *NATSStore) Write(ctx context.Context, path string, value []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	rev, err := s.kv.Put(ctx, natsKey(path), value)
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Uint64("revision", rev).
		Msg("NATS store write")
	return nil
}

// Subscribe watches path. The watcher replays the current value first; when
// the key has never been written an empty snapshot is delivered instead.
func (s *NATSStore) Subscribe(ctx context.Context, path string) (Subscription, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	watcher, err := s.kv.Watch(watchCtx, natsKey(path))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	sub := newSubscription(func() {
		cancel()
		if err := watcher.Stop(); err != nil {
			log.Debug().Err(err).Str("path", path).Msg("failed to stop NATS watcher")
		}
	})
	closeOnDone(watchCtx, sub)

	go s.forward(path, watcher, sub)
	return sub, nil
}

func (s *NATSStore) forward(path string, watcher jetstream.KeyWatcher, sub *subscription) {
	seen := false
	for {
		select {
		case <-sub.done:
			return
		case entry, ok := <-watcher.Updates():
			if !ok {
				sub.fail(fmt.Errorf("watch %s: %w", path, ErrClosed))
				return
			}
			if entry == nil {
				// End of the initial replay.
				if !seen {
					sub.offer(Snapshot{Path: path})
				}
				seen = true
				continue
			}
			seen = true

			snap := Snapshot{Path: path, Revision: entry.Revision()}
			if entry.Operation() == jetstream.KeyValuePut {
				snap.Value = entry.Value()
			}
			sub.offer(snap)
		}
	}
}

// Conn exposes the underlying connection for health checks.
func (s *NATSStore) Conn() *nats.Conn {
	return s.nc
}

// Close closes the NATS connection and with it every watcher.
func (s *NATSStore) Close() error {
	log.Info().Str("bucket", s.config.Bucket).Msg("closing NATS key-value store")
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}
