package roomtimer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

const (
	testRoom  = "ABC123"
	testHost  = "host-1"
	testGuest = "guest-1"
)

var t0 = time.UnixMilli(1_700_000_000_000)

func seedRoom(t *testing.T, s store.Store, settings models.TimerSettings) {
	t.Helper()
	ctx := context.Background()

	createdBy, _ := json.Marshal(testHost)
	if err := s.Write(ctx, CreatedByPath(testRoom), createdBy); err != nil {
		t.Fatalf("seed createdBy: %v", err)
	}
	timers := NewTimerStore(s, testRoom)
	if err := timers.WriteTimer(ctx, models.TimerState{}); err != nil {
		t.Fatalf("seed timer: %v", err)
	}
	if err := timers.WriteSettings(ctx, settings); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
}

func readTimer(t *testing.T, s store.Store) models.TimerState {
	t.Helper()
	state, err := NewTimerStore(s, testRoom).ReadTimer(context.Background())
	if err != nil {
		t.Fatalf("read timer: %v", err)
	}
	return state
}

// recordingSink keeps every display and notice it receives.
type recordingSink struct {
	mu       sync.Mutex
	displays []Display
	notices  []Notice
}

func (r *recordingSink) Render(d Display) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.displays = append(r.displays, d)
}

func (r *recordingSink) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingSink) last() (Display, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.displays) == 0 {
		return Display{}, false
	}
	return r.displays[len(r.displays)-1], true
}

func (r *recordingSink) noticeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func (r *recordingSink) lastNotice() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

// waitForDisplay polls until the sink's latest display satisfies cond.
func waitForDisplay(t *testing.T, sink *recordingSink, what string, cond func(Display) bool) Display {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d, ok := sink.last(); ok && cond(d) {
			return d
		}
		time.Sleep(5 * time.Millisecond)
	}
	d, _ := sink.last()
	t.Fatalf("timed out waiting for %s; last display %+v", what, d)
	return Display{}
}

func waitForNotices(t *testing.T, sink *recordingSink, n int) Notice {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sink.noticeCount() >= n {
			return sink.lastNotice()
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d notices, have %d", n, sink.noticeCount())
	return Notice{}
}

// flakyStore wraps a MemoryStore and can cut live subscriptions or fail
// writes on demand.
type flakyStore struct {
	*store.MemoryStore

	mu       sync.Mutex
	subs     []store.Subscription
	writeErr error
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: store.NewMemoryStore()}
}

func (f *flakyStore) Write(ctx context.Context, path string, value []byte) error {
	f.mu.Lock()
	err := f.writeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.Write(ctx, path, value)
}

func (f *flakyStore) Subscribe(ctx context.Context, path string) (store.Subscription, error) {
	sub, err := f.MemoryStore.Subscribe(ctx, path)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, nil
}

// dropSubscriptions closes every live subscription and returns how many
// were cut.
func (f *flakyStore) dropSubscriptions() int {
	f.mu.Lock()
	subs := f.subs
	f.subs = nil
	f.mu.Unlock()
	for _, sub := range subs {
		_ = sub.Close()
	}
	return len(subs)
}

func (f *flakyStore) failWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}
