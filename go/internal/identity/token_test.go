package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestTokensRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	tokens, err := NewTokens("secret", time.Hour, clock)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}

	token, expires, err := tokens.Issue("participant-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if want := clock.Now().Add(time.Hour); !expires.Equal(want) {
		t.Errorf("expires = %v, want %v", expires, want)
	}

	id, err := NewTokenProvider(tokens, token).CurrentParticipantID()
	if err != nil || id != "participant-1" {
		t.Fatalf("CurrentParticipantID() = %q, %v", id, err)
	}

	clock.Advance(2 * time.Hour)
	if _, err := tokens.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v, want ErrInvalidToken", err)
	}
}

func TestTokensRejectForeignSecret(t *testing.T) {
	a, _ := NewTokens("secret-a", time.Hour, nil)
	b, _ := NewTokens("secret-b", time.Hour, nil)

	token, _, err := a.Issue("participant-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
	if _, err := a.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(garbage) error = %v", err)
	}
}

func TestStaticProvider(t *testing.T) {
	if _, err := Static("  ").CurrentParticipantID(); !errors.Is(err, ErrNoParticipant) {
		t.Errorf("blank id error = %v", err)
	}
	if id, err := Static("p1").CurrentParticipantID(); err != nil || id != "p1" {
		t.Errorf("CurrentParticipantID() = %q, %v", id, err)
	}
	if _, err := NewTokens("", time.Hour, nil); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestValidateParticipantID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr error
	}{
		{id: "p1"},
		{id: "host_1-a"},
		{id: "", wantErr: ErrNoParticipant},
		{id: "alice.smith", wantErr: ErrInvalidParticipant},
		{id: "a b", wantErr: ErrInvalidParticipant},
		{id: "a/b", wantErr: ErrInvalidParticipant},
	}
	for _, tt := range tests {
		err := ValidateParticipantID(tt.id)
		if tt.wantErr == nil && err != nil {
			t.Errorf("ValidateParticipantID(%q) = %v, want nil", tt.id, err)
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("ValidateParticipantID(%q) = %v, want %v", tt.id, err, tt.wantErr)
		}
	}

	if _, err := Static("alice.smith").CurrentParticipantID(); !errors.Is(err, ErrInvalidParticipant) {
		t.Errorf("Static(alice.smith) error = %v, want ErrInvalidParticipant", err)
	}
	tokens, _ := NewTokens("secret", time.Hour, nil)
	if _, _, err := tokens.Issue("alice.smith"); !errors.Is(err, ErrInvalidParticipant) {
		t.Errorf("Issue(alice.smith) error = %v, want ErrInvalidParticipant", err)
	}
}
