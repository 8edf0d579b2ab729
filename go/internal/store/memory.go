package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type memoryEntry struct {
	value    []byte
	revision uint64
}

// MemoryStore is an in-process Store. It is used by single-process
// deployments and as the shared store in tests.
type MemoryStore struct {
	mu       sync.Mutex
	values   map[string]memoryEntry
	subs     map[string]map[*subscription]struct{}
	revision uint64
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]memoryEntry),
		subs:   make(map[string]map[*subscription]struct{}),
	}
}

// Read returns a copy of the value at path.
func (m *MemoryStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	entry, ok := m.values[path]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(entry.value), nil
}

// Write stores value at path and fans the new snapshot out to subscribers.
func (m *MemoryStore) Write(ctx context.Context, path string, value []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.revision++
	entry := memoryEntry{value: clone(value), revision: m.revision}
	m.values[path] = entry

	// Offers are non-blocking, so fan out under the lock to keep per-path
	// delivery in revision order.
	snap := Snapshot{Path: path, Value: entry.value, Revision: entry.revision}
	for sub := range m.subs[path] {
		sub.offer(Snapshot{Path: snap.Path, Value: clone(snap.Value), Revision: snap.Revision})
	}

	log.Debug().
		Str("path", path).
		Uint64("revision", entry.revision).
		Int("subscribers", len(m.subs[path])).
		Msg("memory store write")
	return nil
}

// Subscribe registers a subscriber for path and delivers its current value.
func (m *MemoryStore) Subscribe(ctx context.Context, path string) (Subscription, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	var sub *subscription
	sub = newSubscription(func() { m.unsubscribe(path, sub) })

	if m.subs[path] == nil {
		m.subs[path] = make(map[*subscription]struct{})
	}
	m.subs[path][sub] = struct{}{}

	initial := Snapshot{Path: path}
	if entry, ok := m.values[path]; ok {
		initial.Value = clone(entry.value)
		initial.Revision = entry.revision
	}
	sub.offer(initial)

	closeOnDone(ctx, sub)
	return sub, nil
}

func (m *MemoryStore) unsubscribe(path string, sub *subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if subs, ok := m.subs[path]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(m.subs, path)
		}
	}
}

// Close ends every subscription. Later calls fail with ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var all []*subscription
	for _, subs := range m.subs {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	m.subs = make(map[string]map[*subscription]struct{})
	m.mu.Unlock()

	for _, sub := range all {
		sub.fail(ErrClosed)
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	dup := make([]byte, len(b))
	copy(dup, b)
	return dup
}
