package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
)

// Connection is one client socket. It is the display surface of its own
// timer session and forwards the client's commands to it.
type Connection struct {
	ID            string
	ParticipantID string
	RoomID        string
	Conn          *websocket.Conn
	Send          chan []byte
	Manager       *ConnectionManager
	ConnectedAt   time.Time

	session *roomtimer.Session
	cancel  context.CancelFunc

	mu       sync.Mutex
	closed   bool
	lastPong time.Time
}

var _ roomtimer.DisplaySink = (*Connection)(nil)

// Render implements roomtimer.DisplaySink.
func (c *Connection) Render(d roomtimer.Display) {
	c.sendEvent(EventTypeDisplay, d)
}

// Notify implements roomtimer.DisplaySink.
func (c *Connection) Notify(n roomtimer.Notice) {
	c.sendEvent(EventTypeNotice, n)
}

// LastPong reports when the client last answered a ping.
func (c *Connection) LastPong() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPong
}

func (c *Connection) sendEvent(eventType EventType, payload interface{}) {
	event, err := NewRoomEvent(c.RoomID, eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to encode event")
		return
	}
	c.enqueue(data)
}

// enqueue hands data to the write pump. A client too slow to drain its
// buffer is disconnected.
func (c *Connection) enqueue(data []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.Send <- data:
		c.mu.Unlock()
		return
	default:
	}
	c.mu.Unlock()

	log.Warn().
		Str("connection_id", c.ID).
		Str("participant_id", c.ParticipantID).
		Msg("send buffer full, dropping slow client")
	go func() {
		c.Manager.remove(c)
		c.Conn.Close()
	}()
}

func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// runSession runs the timer session. When the room cannot be entered the
// client gets an error event and the socket is closed.
func (c *Connection) runSession(ctx context.Context) {
	err := c.session.Run(ctx)
	if err == nil {
		return
	}

	log.Warn().
		Err(err).
		Str("connection_id", c.ID).
		Str("room_id", c.RoomID).
		Msg("timer session ended with error")

	message := "timer session failed"
	switch {
	case errors.Is(err, roomtimer.ErrRoomNotFound):
		message = "room not found"
	case errors.Is(err, roomtimer.ErrInvalidRoomID):
		message = "invalid room id"
	}
	c.sendEvent(EventTypeError, ErrorPayload{Message: message})
	c.closeSend()
}

func (c *Connection) write(messageType int, data []byte) error {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout)); err != nil {
		return err
	}
	return c.Conn.WriteMessage(messageType, data)
}

// writePump is the only writer on the socket. It exits when Send is closed
// or a write fails.
func (c *Connection) writePump() {
	ping := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ping.Stop()
		c.Conn.Close()
		c.Manager.remove(c)
	}()

	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.write(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("write failed")
				return
			}
		case <-ping.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("ping failed")
				return
			}
		}
	}
}

// readPump reads client commands until the socket fails or goes quiet for
// longer than the read timeout.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.remove(c)
		c.Conn.Close()
	}()

	timeout := c.Manager.config.ReadTimeout
	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(timeout))
	c.Conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastPong = c.Manager.clock.Now()
		c.mu.Unlock()
		return c.Conn.SetReadDeadline(time.Now().Add(timeout))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("connection_id", c.ID).Msg("connection closed unexpectedly")
			}
			return
		}
		c.handleClientMessage(data)
		_ = c.Conn.SetReadDeadline(time.Now().Add(timeout))
	}
}

// handleClientMessage turns a client message into a timer command.
func (c *Connection) handleClientMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Notify(roomtimer.Notice{Level: roomtimer.NoticeError, Message: "malformed message"})
		return
	}

	cmd, err := msg.Command()
	if err != nil {
		c.Notify(roomtimer.Notice{Level: roomtimer.NoticeError, Message: err.Error()})
		return
	}

	log.Debug().
		Str("connection_id", c.ID).
		Str("participant_id", c.ParticipantID).
		Str("command", string(cmd.Kind)).
		Msg("client command")

	if err := c.session.Submit(cmd); err != nil {
		c.Notify(roomtimer.Notice{Level: roomtimer.NoticeWarning, Message: "too many pending commands, try again"})
	}
}
