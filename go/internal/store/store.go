// Package store provides the shared state space every client of a room reads,
// writes and watches. Values are opaque JSON documents addressed by slash
// separated paths such as rooms/ABC123/timer.
//
// The store has no transactions and no authorization: any client that knows a
// path may write it, and subscribers are only guaranteed to eventually observe
// the latest write.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned by Read when nothing is stored at the path.
	ErrNotFound = errors.New("store: not found")
	// ErrClosed is returned when the store or a subscription has been closed.
	ErrClosed = errors.New("store: closed")
	// ErrInvalidPath is returned for paths with empty or illegal segments.
	ErrInvalidPath = errors.New("store: invalid path")
)

// Store is a remote mutable key-value space with push notifications.
type Store interface {
	// Read returns the value stored at path, or ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
	// Write replaces the value at path. Last write wins.
	Write(ctx context.Context, path string, value []byte) error
	// Subscribe delivers the current value at path followed by every later
	// change. Intermediate values may be coalesced; the latest is never lost.
	Subscribe(ctx context.Context, path string) (Subscription, error)
	Close() error
}

// Snapshot is one observed value at a path.
type Snapshot struct {
	Path     string
	Value    []byte // nil when the path holds no value
	Revision uint64
}

// Exists reports whether the snapshot carries a value.
func (s Snapshot) Exists() bool {
	return s.Value != nil
}

// Subscription is a handle on a stream of snapshots. Updates is closed when
// the subscription ends; Err then reports why (nil after Close).
type Subscription interface {
	Updates() <-chan Snapshot
	Err() error
	Close() error
}

var segmentRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// ValidSegment reports whether s can be used as a single path segment.
func ValidSegment(s string) bool {
	return segmentRe.MatchString(s)
}

// ValidatePath checks that every segment of path is non-empty and made of
// letters, digits, '_' or '-'.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, seg := range strings.Split(path, "/") {
		if !segmentRe.MatchString(seg) {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return nil
}

// subscription is the delivery queue shared by every backend. It holds at most
// one pending snapshot and replaces it when a newer one arrives, so a slow
// reader never blocks a writer and always ends up with the latest value.
type subscription struct {
	ch      chan Snapshot
	done    chan struct{}
	mu      sync.Mutex
	closed  bool
	err     error
	onClose func()
	last    uint64
}

func newSubscription(onClose func()) *subscription {
	return &subscription{
		ch:      make(chan Snapshot, 1),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// offer enqueues snap, dropping an undelivered older snapshot. Snapshots with
// a revision lower than one already offered are ignored.
func (s *subscription) offer(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if snap.Revision != 0 && snap.Revision < s.last {
		return
	}
	s.last = snap.Revision

	select {
	case s.ch <- snap:
	default:
		select {
		case <-s.ch:
		default:
		}
		s.ch <- snap
	}
}

// fail ends the subscription with err.
func (s *subscription) fail(err error) {
	s.finish(err)
}

func (s *subscription) finish(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
	close(s.done)
	s.mu.Unlock()

	if s.onClose != nil {
		s.onClose()
	}
}

func (s *subscription) Updates() <-chan Snapshot {
	return s.ch
}

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) Close() error {
	s.finish(nil)
	return nil
}

// closeOnDone ends sub when ctx is cancelled.
func closeOnDone(ctx context.Context, sub *subscription) {
	go func() {
		select {
		case <-ctx.Done():
			sub.fail(ctx.Err())
		case <-sub.done:
		}
	}()
}
