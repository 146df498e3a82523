// Package wsclient is the client end of the host's join handshake and packet
// stream.
package wsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/moonhappy/biophage-xna-2009-sub001/internal/net/proto"
)

// ErrJoinRejected wraps a /join refusal; errors.As to *JoinError for the
// reason.
var ErrJoinRejected = errors.New("join rejected")

type JoinError struct {
	Reason string
}

func (e *JoinError) Error() string { return fmt.Sprintf("join rejected: %s", e.Reason) }

func (e *JoinError) Unwrap() error { return ErrJoinRejected }

// ClientConn is the client end of a session.
type ClientConn struct {
	conn    *websocket.Conn
	Join    proto.JoinResponse
	Player  uuid.UUID
	writeMu sync.Mutex
}

// Dial joins the host at baseURL (http or https) and opens the packet
// stream.
func Dial(ctx context.Context, baseURL, name string) (*ClientConn, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse host url: %w", err)
	}

	join, err := requestJoin(ctx, base, name)
	if err != nil {
		return nil, err
	}
	player, err := uuid.Parse(join.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("join returned invalid player id %q: %w", join.PlayerID, err)
	}

	wsURL := *base
	wsURL.Scheme = strings.Replace(base.Scheme, "http", "ws", 1)
	wsURL.Path = "/ws"
	query := wsURL.Query()
	query.Set("id", join.PlayerID)
	wsURL.RawQuery = query.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL.Redacted(), err)
	}
	return &ClientConn{conn: conn, Join: join, Player: player}, nil
}

func requestJoin(ctx context.Context, base *url.URL, name string) (proto.JoinResponse, error) {
	var join proto.JoinResponse
	body, err := json.Marshal(proto.JoinRequest{Ver: proto.Version, Name: name})
	if err != nil {
		return join, fmt.Errorf("encode join request: %w", err)
	}
	joinURL := *base
	joinURL.Path = "/join"
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, joinURL.String(), bytes.NewReader(body))
	if err != nil {
		return join, fmt.Errorf("build join request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := nethttp.DefaultClient.Do(req)
	if err != nil {
		return join, fmt.Errorf("join: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		var rejected proto.JoinRejected
		if err := json.NewDecoder(resp.Body).Decode(&rejected); err != nil || rejected.Reason == "" {
			return join, fmt.Errorf("join: unexpected status %s", resp.Status)
		}
		return join, &JoinError{Reason: rejected.Reason}
	}
	if err := json.NewDecoder(resp.Body).Decode(&join); err != nil {
		return join, fmt.Errorf("decode join response: %w", err)
	}
	if join.Ver != proto.Version {
		return join, fmt.Errorf("host protocol version %d, client speaks %d", join.Ver, proto.Version)
	}
	return join, nil
}

// Send writes one client packet.
func (c *ClientConn) Send(p proto.Packet) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, proto.Encode(p))
}

// Receive blocks for the next host packet. Decode failures are returned
// alongside a nil packet; the stream stays usable.
func (c *ClientConn) Receive() (proto.Packet, error) {
	for {
		kind, payload, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		return proto.Decode(payload)
	}
}

// SetReadDeadline bounds the next Receive.
func (c *ClientConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close sends a close frame and drops the connection.
func (c *ClientConn) Close() error {
	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// IsClosed reports whether err means the host ended the session.
func IsClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.ClosePolicyViolation) ||
		errors.Is(err, websocket.ErrCloseSent)
}
