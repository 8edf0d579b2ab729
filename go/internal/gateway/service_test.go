package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ysatyam-3107/studentsync/go/internal/identity"
	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
	"github.com/ysatyam-3107/studentsync/go/internal/rooms"
	"github.com/ysatyam-3107/studentsync/go/internal/store"
)

type testEnv struct {
	server  *httptest.Server
	tokens  *identity.Tokens
	service *Service
	app     *rooms.App
	store   store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := store.NewMemoryStore()
	tokens, err := identity.NewTokens("gateway-secret", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}

	svc := NewService(DefaultConfig(), s, tokens, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go svc.Start(ctx)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		_ = s.Close()
	})
	return &testEnv{
		server:  srv,
		tokens:  tokens,
		service: svc,
		app:     rooms.NewApp(rooms.NewRepository(s), nil, svc),
		store:   s,
	}
}

func (e *testEnv) dial(t *testing.T, participantID, roomID string) *websocket.Conn {
	t.Helper()
	token, _, err := e.tokens.Issue(participantID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	u := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws/room?room_id=" + url.QueryEscape(roomID) + "&token=" + url.QueryEscape(token)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads events until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, what string, match func(*RoomEvent) bool) *RoomEvent {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", what, err)
		}
		var event RoomEvent
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if match(&event) {
			return &event
		}
	}
}

func displayMatching(cond func(roomtimer.Display) bool) func(*RoomEvent) bool {
	return func(e *RoomEvent) bool {
		if e.Type != EventTypeDisplay {
			return false
		}
		payload, err := ParseEventPayload(e)
		if err != nil {
			return false
		}
		return cond(payload.(roomtimer.Display))
	}
}

func TestGatewayHostControlsSharedTimer(t *testing.T) {
	env := newTestEnv(t)
	room, err := env.app.CreateRoom(context.Background(), "host-1")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	host := env.dial(t, "host-1", room.Code)
	guest := env.dial(t, "guest-1", strings.ToLower(room.Code))

	readUntil(t, host, "host display", displayMatching(func(d roomtimer.Display) bool {
		return d.ControlsEnabled && d.Clock == "25:00"
	}))
	readUntil(t, guest, "guest display", displayMatching(func(d roomtimer.Display) bool {
		return !d.ControlsEnabled && d.Clock == "25:00"
	}))

	// Guests cannot start the timer
	if err := guest.WriteJSON(ClientMessage{Type: "start"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, guest, "non-host notice", func(e *RoomEvent) bool { return e.Type == EventTypeNotice })

	if err := host.WriteJSON(ClientMessage{Type: "start"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, conn := range []*websocket.Conn{host, guest} {
		readUntil(t, conn, "running display", displayMatching(func(d roomtimer.Display) bool {
			return d.Running && d.Phase == models.PhaseWork
		}))
	}

	if err := host.WriteJSON(ClientMessage{Type: "pause"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, guest, "paused display", displayMatching(func(d roomtimer.Display) bool { return d.Paused }))

	state, err := roomtimer.NewTimerStore(env.store, room.Code).ReadTimer(context.Background())
	if err != nil {
		t.Fatalf("ReadTimer: %v", err)
	}
	if state.Running || state.RemainingMs <= 0 {
		t.Errorf("stored timer after pause = %+v", state)
	}
}

func TestGatewayMemberJoined(t *testing.T) {
	env := newTestEnv(t)
	room, err := env.app.CreateRoom(context.Background(), "host-1")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	host := env.dial(t, "host-1", room.Code)
	readUntil(t, host, "host display", func(e *RoomEvent) bool { return e.Type == EventTypeDisplay })

	if _, err := env.app.JoinRoom(context.Background(), room.Code, "guest-2"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	event := readUntil(t, host, "member joined", func(e *RoomEvent) bool { return e.Type == EventTypeMemberJoined })
	payload, err := ParseEventPayload(event)
	if err != nil {
		t.Fatalf("ParseEventPayload: %v", err)
	}
	if got := payload.(MemberJoinedPayload).ParticipantID; got != "guest-2" {
		t.Errorf("participant = %q", got)
	}

	if stats := env.service.GetStats(); stats.TotalConnections != 1 || stats.RoomConnections[room.Code] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGatewayRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)
	token, _, _ := env.tokens.Issue("p1")

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing room", "?token=" + token, http.StatusBadRequest},
		{"malformed room", "?room_id=12&token=" + token, http.StatusBadRequest},
		{"bad token", "?room_id=ABC123&token=nope", http.StatusUnauthorized},
		{"unknown room", "?room_id=ABC123&token=" + token, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := http.Get(env.server.URL + "/ws/room" + tt.query)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			res.Body.Close()
			if res.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.want)
			}
		})
	}
}

func TestClientMessageCommand(t *testing.T) {
	cmd, err := ClientMessage{Type: "update_settings", WorkMinutes: 30, BreakMinutes: 10}.Command()
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if cmd.Kind != roomtimer.CommandUpdateSettings || cmd.WorkMinutes != 30 || cmd.BreakMinutes != 10 {
		t.Errorf("cmd = %+v", cmd)
	}
	if _, err := (ClientMessage{Type: "explode"}).Command(); err == nil {
		t.Error("expected error for unknown type")
	}
}
