package rooms

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// RoomServiceName is the fully-qualified name of the RoomService service.
const RoomServiceName = "studysync.rooms.v1.RoomService"

// Procedure paths of the RoomService RPCs.
const (
	RoomServiceIssueTokenProcedure = "/" + RoomServiceName + "/IssueToken"
	RoomServiceCreateRoomProcedure = "/" + RoomServiceName + "/CreateRoom"
	RoomServiceJoinRoomProcedure   = "/" + RoomServiceName + "/JoinRoom"
	RoomServiceGetTimerProcedure   = "/" + RoomServiceName + "/GetTimer"
)

// RoomServiceHandler is implemented by the server side of RoomService.
type RoomServiceHandler interface {
	IssueToken(context.Context, *connect.Request[IssueTokenRequest]) (*connect.Response[IssueTokenResponse], error)
	CreateRoom(context.Context, *connect.Request[CreateRoomRequest]) (*connect.Response[CreateRoomResponse], error)
	JoinRoom(context.Context, *connect.Request[JoinRoomRequest]) (*connect.Response[JoinRoomResponse], error)
	GetTimer(context.Context, *connect.Request[GetTimerRequest]) (*connect.Response[GetTimerResponse], error)
}

// jsonCodec carries plain Go structs as JSON under the "json" codec name.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

// NewRoomServiceHandler builds an HTTP handler serving every RoomService RPC
// and returns the path to mount it on.
func NewRoomServiceHandler(svc RoomServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	issueToken := connect.NewUnaryHandler(RoomServiceIssueTokenProcedure, svc.IssueToken, opts...)
	createRoom := connect.NewUnaryHandler(RoomServiceCreateRoomProcedure, svc.CreateRoom, opts...)
	joinRoom := connect.NewUnaryHandler(RoomServiceJoinRoomProcedure, svc.JoinRoom, opts...)
	getTimer := connect.NewUnaryHandler(RoomServiceGetTimerProcedure, svc.GetTimer, opts...)

	return "/" + RoomServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case RoomServiceIssueTokenProcedure:
			issueToken.ServeHTTP(w, r)
		case RoomServiceCreateRoomProcedure:
			createRoom.ServeHTTP(w, r)
		case RoomServiceJoinRoomProcedure:
			joinRoom.ServeHTTP(w, r)
		case RoomServiceGetTimerProcedure:
			getTimer.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// Client calls RoomService over HTTP.
type Client struct {
	issueToken *connect.Client[IssueTokenRequest, IssueTokenResponse]
	createRoom *connect.Client[CreateRoomRequest, CreateRoomResponse]
	joinRoom   *connect.Client[JoinRoomRequest, JoinRoomResponse]
	getTimer   *connect.Client[GetTimerRequest, GetTimerResponse]
	token      string
}

// NewRoomServiceClient creates a client for the service at baseURL.
func NewRoomServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &Client{
		issueToken: connect.NewClient[IssueTokenRequest, IssueTokenResponse](httpClient, baseURL+RoomServiceIssueTokenProcedure, opts...),
		createRoom: connect.NewClient[CreateRoomRequest, CreateRoomResponse](httpClient, baseURL+RoomServiceCreateRoomProcedure, opts...),
		joinRoom:   connect.NewClient[JoinRoomRequest, JoinRoomResponse](httpClient, baseURL+RoomServiceJoinRoomProcedure, opts...),
		getTimer:   connect.NewClient[GetTimerRequest, GetTimerResponse](httpClient, baseURL+RoomServiceGetTimerProcedure, opts...),
	}
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// IssueToken calls RoomService.IssueToken.
func (c *Client) IssueToken(ctx context.Context, req *IssueTokenRequest) (*IssueTokenResponse, error) {
	res, err := c.issueToken.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// CreateRoom calls RoomService.CreateRoom.
func (c *Client) CreateRoom(ctx context.Context, req *CreateRoomRequest) (*CreateRoomResponse, error) {
	res, err := c.createRoom.CallUnary(ctx, withAuth(connect.NewRequest(req), c.token))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// JoinRoom calls RoomService.JoinRoom.
func (c *Client) JoinRoom(ctx context.Context, req *JoinRoomRequest) (*JoinRoomResponse, error) {
	res, err := c.joinRoom.CallUnary(ctx, withAuth(connect.NewRequest(req), c.token))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// GetTimer calls RoomService.GetTimer.
func (c *Client) GetTimer(ctx context.Context, req *GetTimerRequest) (*GetTimerResponse, error) {
	res, err := c.getTimer.CallUnary(ctx, withAuth(connect.NewRequest(req), c.token))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func withAuth[T any](req *connect.Request[T], token string) *connect.Request[T] {
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return req
}
