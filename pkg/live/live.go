// Package live subscribes to the backend's push channel and turns node
// added/removed notifications into typed events.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dan-solli/kinship/pkg/person"
)

const (
	// Time allowed to write a control message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024 * 1024
)

// Message types on the wire.
const (
	TypeNodeAdded   = "node.added"
	TypeNodeRemoved = "node.removed"
)

// AddEvent reports nodes added by another actor. OriginID is the node the
// addition was made from.
type AddEvent struct {
	OriginID string           `json:"originId"`
	Nodes    []*person.Person `json:"nodes"`
}

// RemoveEvent reports a deleted node plus the server's updated view of its
// former neighbors.
type RemoveEvent struct {
	RemovedID        string           `json:"removedId"`
	ReplacementNodes []*person.Person `json:"replacementNodes"`
}

// Message is the envelope of every pushed notification.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Handler receives decoded events. A returned error is logged and the
// subscription continues.
type Handler interface {
	HandleAdd(ctx context.Context, ev AddEvent) error
	HandleRemove(ctx context.Context, ev RemoveEvent) error
}

// Subscriber reads live updates from a websocket endpoint.
type Subscriber struct {
	URL    string
	Token  string
	Dialer *websocket.Dialer

	clientID string
	logger   *slog.Logger
}

// NewSubscriber creates a subscriber for url. A nil logger discards output.
func NewSubscriber(url, token string, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clientID := uuid.New().String()
	return &Subscriber{
		URL:      url,
		Token:    token,
		Dialer:   websocket.DefaultDialer,
		clientID: clientID,
		logger:   logger.With("client_id", clientID),
	}
}

// ClientID identifies this subscriber to the server.
func (s *Subscriber) ClientID() string {
	return s.clientID
}

// Run dials the endpoint and dispatches events to h until ctx is done or the
// server closes the connection. It returns nil in both of those cases.
func (s *Subscriber) Run(ctx context.Context, h Handler) error {
	header := http.Header{}
	header.Set("X-Client-ID", s.clientID)
	if s.Token != "" {
		header.Set("Authorization", "Bearer "+s.Token)
	}

	conn, resp, err := s.Dialer.DialContext(ctx, s.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial failed (%d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	defer conn.Close()
	s.logger.Info("live subscription started", "url", s.URL)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.keepalive(ctx, conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("live subscription stopped", "reason", ctx.Err())
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Info("live subscription closed by server")
				return nil
			}
			return fmt.Errorf("websocket read failed: %w", err)
		}
		s.dispatch(ctx, h, data)
	}
}

// keepalive pings the server and closes the connection once ctx is done so
// the blocked read returns.
func (s *Subscriber) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.logger.Warn("failed to send ping", "error", err)
				return
			}
		}
	}
}

func (s *Subscriber) dispatch(ctx context.Context, h Handler, data []byte) {
	ev, err := Decode(data)
	if err != nil {
		s.logger.Warn("skipping live message", "error", err)
		return
	}

	switch e := ev.(type) {
	case AddEvent:
		err = h.HandleAdd(ctx, e)
	case RemoveEvent:
		err = h.HandleRemove(ctx, e)
	}
	if err != nil {
		s.logger.Warn("live event handler failed", "error", err)
	}
}

// ErrUnknownMessage is returned by Decode for unsupported message types.
var ErrUnknownMessage = errors.New("unknown live message type")

// Decode parses a pushed message into an AddEvent or RemoveEvent.
func Decode(data []byte) (any, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	switch msg.Type {
	case TypeNodeAdded:
		var ev AddEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", msg.Type, err)
		}
		return ev, nil
	case TypeNodeRemoved:
		var ev RemoveEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", msg.Type, err)
		}
		return ev, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
}

// Encode builds the wire form of an AddEvent or RemoveEvent.
func Encode(ev any) ([]byte, error) {
	var typ string
	switch ev.(type) {
	case AddEvent, *AddEvent:
		typ = TypeNodeAdded
	case RemoveEvent, *RemoveEvent:
		typ = TypeNodeRemoved
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, ev)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", typ, err)
	}
	return json.Marshal(Message{Type: typ, Data: data})
}
