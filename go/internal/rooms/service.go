package rooms

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"

	"github.com/ysatyam-3107/studentsync/go/internal/identity"
	"github.com/ysatyam-3107/studentsync/go/internal/models"
	"github.com/ysatyam-3107/studentsync/go/internal/roomtimer"
)

// RoomsApp defines what the service layer needs from the rooms application
type RoomsApp interface {
	CreateRoom(ctx context.Context, participantID string) (*models.Room, error)
	JoinRoom(ctx context.Context, code, participantID string) (*models.Room, error)
	GetTimer(ctx context.Context, code string) (*TimerView, error)
}

// Service implements the RoomService RPC interface
type Service struct {
	app    RoomsApp
	tokens *identity.Tokens
}

// NewService creates a new rooms RPC service
func NewService(app RoomsApp, tokens *identity.Tokens) *Service {
	return &Service{
		app:    app,
		tokens: tokens,
	}
}

// Verify that Service implements the RoomServiceHandler interface
var _ RoomServiceHandler = (*Service)(nil)

// IssueToken signs a participant token, minting a new participant id when
// none is supplied.
func (s *Service) IssueToken(ctx context.Context, req *connect.Request[IssueTokenRequest]) (*connect.Response[IssueTokenResponse], error) {
	participantID := strings.TrimSpace(req.Msg.ParticipantID)
	if participantID == "" {
		participantID = identity.NewParticipantID()
	}
	if err := identity.ValidateParticipantID(participantID); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	token, expires, err := s.tokens.Issue(participantID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&IssueTokenResponse{
		ParticipantID: participantID,
		Token:         token,
		ExpiresAt:     expires.UnixMilli(),
	}), nil
}

// CreateRoom creates a room hosted by the caller
func (s *Service) CreateRoom(ctx context.Context, req *connect.Request[CreateRoomRequest]) (*connect.Response[CreateRoomResponse], error) {
	participantID, err := s.authenticate(req.Header().Get("Authorization"))
	if err != nil {
		return nil, err
	}

	room, err := s.app.CreateRoom(ctx, participantID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&CreateRoomResponse{
		Room: room,
	}), nil
}

// JoinRoom adds the caller to an existing room
func (s *Service) JoinRoom(ctx context.Context, req *connect.Request[JoinRoomRequest]) (*connect.Response[JoinRoomResponse], error) {
	participantID, err := s.authenticate(req.Header().Get("Authorization"))
	if err != nil {
		return nil, err
	}

	room, err := s.app.JoinRoom(ctx, req.Msg.Code, participantID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&JoinRoomResponse{
		Room:   room,
		IsHost: roomtimer.IsHost(participantID, room.CreatedBy),
	}), nil
}

// GetTimer returns a room's timer as seen at server time
func (s *Service) GetTimer(ctx context.Context, req *connect.Request[GetTimerRequest]) (*connect.Response[GetTimerResponse], error) {
	view, err := s.app.GetTimer(ctx, req.Msg.Code)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&GetTimerResponse{
		Timer: view,
	}), nil
}

func (s *Service) authenticate(header string) (string, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errors.New("missing bearer token"))
	}
	participantID, err := s.tokens.Verify(token)
	if err != nil {
		return "", connect.NewError(connect.CodeUnauthenticated, err)
	}
	return participantID, nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, roomtimer.ErrInvalidRoomID),
		errors.Is(err, identity.ErrInvalidParticipant),
		errors.Is(err, identity.ErrNoParticipant):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, roomtimer.ErrRoomNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ErrRoomCodeExhausted):
		return connect.NewError(connect.CodeResourceExhausted, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
