package roomtimer

import (
	"context"
	"errors"
	"testing"

	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

func TestAuthorityResolve(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	seedRoom(t, s, models.DefaultTimerSettings())
	r := NewAuthorityResolver(s)
	ctx := context.Background()

	host, err := r.Resolve(ctx, testHost, testRoom)
	if err != nil || !host.IsHost || host.CreatedBy != testHost {
		t.Errorf("Resolve(host) = %+v, %v", host, err)
	}

	guest, err := r.Resolve(ctx, testGuest, testRoom)
	if err != nil || guest.IsHost {
		t.Errorf("Resolve(guest) = %+v, %v", guest, err)
	}

	if _, err := r.Resolve(ctx, testHost, "abc"); !errors.Is(err, ErrInvalidRoomID) {
		t.Errorf("Resolve(bad code) error = %v", err)
	}
	if _, err := r.Resolve(ctx, testHost, "ZZZ999"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Resolve(unknown room) error = %v", err)
	}
}

func TestAuthorityFailsClosedOnUnreadableMetadata(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	if err := s.Write(context.Background(), CreatedByPath(testRoom), []byte(`{not json`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	auth, err := NewAuthorityResolver(s).Resolve(context.Background(), testHost, testRoom)
	if err == nil {
		t.Fatal("expected error")
	}
	if auth.IsHost {
		t.Error("unreadable metadata must not grant host")
	}
}

func TestIsHostRequiresParticipant(t *testing.T) {
	if IsHost("", "") {
		t.Error("empty participant matched empty creator")
	}
}
