package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/henri123lemoine/odoodash/internal/config"
	"github.com/henri123lemoine/odoodash/internal/debug"
	"github.com/henri123lemoine/odoodash/internal/progress"
)

// EventType is the kind of a branch-switch stream event.
type EventType string

const (
	EventStart   EventType = "start"
	EventStep    EventType = "step"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
)

// SwitchRequest is the single message sent after a stream opens.
type SwitchRequest struct {
	Branch string `json:"branch"`
	Create bool   `json:"create"`
}

// StreamEvent is a message pushed by the backend during a branch switch.
type StreamEvent struct {
	Type          EventType      `json:"type"`
	Message       string         `json:"message,omitempty"`
	Data          *progress.Step `json:"data,omitempty"`
	CurrentBranch string         `json:"current_branch,omitempty"`
}

var (
	// ErrStreamClosed is returned by Recv once the stream has ended.
	ErrStreamClosed = errors.New("stream closed")

	// ErrMalformedEvent wraps frames that are not valid events.
	ErrMalformedEvent = errors.New("malformed stream event")
)

// Stream is one open branch-switch channel.
type Stream interface {
	Send(req SwitchRequest) error
	Recv() (StreamEvent, error)
	Close() error
}

// Dialer opens branch-switch streams over WebSocket.
type Dialer struct {
	baseURL      string
	token        string
	branchScoped bool
	ws           *websocket.Dialer
}

// NewDialer creates a dialer from server settings.
func NewDialer(cfg config.ServerConfig) *Dialer {
	return &Dialer{
		baseURL:      cfg.StreamBaseURL(),
		token:        cfg.Token,
		branchScoped: cfg.BranchScopedStream,
		ws: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// StreamURL returns the address of the stream for a base client.
func (d *Dialer) StreamURL(base, branch string) string {
	u := d.baseURL + "/ws/branch-switch/" + url.PathEscape(base)
	if d.branchScoped && branch != "" {
		u += "/" + url.PathEscape(branch)
	}
	return u
}

// Dial opens the stream for base. branch only shapes the address when the
// backend scopes streams per branch.
func (d *Dialer) Dial(ctx context.Context, base, branch string) (Stream, error) {
	addr := d.StreamURL(base, branch)
	header := http.Header{}
	header.Set("X-Session-ID", uuid.NewString())
	if d.token != "" {
		header.Set("Authorization", "Bearer "+d.token)
	}

	debug.Log("stream dial %s", addr)
	conn, resp, err := d.ws.DialContext(ctx, addr, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: http %d: %w", addr, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &wsStream{conn: conn, addr: addr}, nil
}

type wsStream struct {
	conn *websocket.Conn
	addr string

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (s *wsStream) Send(req SwitchRequest) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	debug.Log("stream send %s %+v", s.addr, req)
	return s.conn.WriteJSON(req)
}

func (s *wsStream) Recv() (StreamEvent, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return StreamEvent{}, ErrStreamClosed
		}
		return StreamEvent{}, fmt.Errorf("%w: %v", ErrStreamClosed, err)
	}

	var ev StreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return StreamEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	switch ev.Type {
	case EventStart, EventStep, EventSuccess, EventError:
	default:
		return StreamEvent{}, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, ev.Type)
	}
	if ev.Type == EventStep && ev.Data == nil {
		return StreamEvent{}, fmt.Errorf("%w: step without data", ErrMalformedEvent)
	}
	debug.Log("stream recv %s %s %s", s.addr, ev.Type, strings.TrimSpace(ev.Message))
	return ev, nil
}

func (s *wsStream) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		s.closeErr = s.conn.Close()
		debug.Log("stream closed %s", s.addr)
	})
	return s.closeErr
}
