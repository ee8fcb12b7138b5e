package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 512 * 1024
)

// WSChannel implements Channel against the gateway's WebSocket endpoint.
type WSChannel struct {
	dispatcher

	baseURL string
	dialer  *websocket.Dialer
	logger  *slog.Logger

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	roomID  string
	self    protocol.Presence
	closed  bool
	wg      sync.WaitGroup
}

// NewWSChannel creates a channel for the gateway at baseURL, e.g.
// "ws://localhost:8080". http and https schemes are mapped to ws and wss.
func NewWSChannel(baseURL string, logger *slog.Logger) *WSChannel {
	logger = logger.With("component", "ws_channel")
	return &WSChannel{
		dispatcher: newDispatcher(logger),
		baseURL:    strings.TrimRight(baseURL, "/"),
		dialer:     websocket.DefaultDialer,
		logger:     logger,
	}
}

func (c *WSChannel) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *WSChannel) roomURL(roomID string, self protocol.Presence) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse gateway url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported gateway scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/rooms/" + url.PathEscape(roomID) + "/ws"
	q := u.Query()
	q.Set("participant_id", self.ParticipantID)
	if self.DisplayName != "" {
		q.Set("name", self.DisplayName)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *WSChannel) Connect(ctx context.Context, roomID string, self protocol.Presence) error {
	if roomID == "" {
		return errors.New("room id required")
	}
	if self.ParticipantID == "" {
		return errors.New("participant id required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.conn != nil {
		if c.roomID == roomID {
			return nil
		}
		c.leaveLocked()
	}

	target, err := c.roomURL(roomID, self)
	if err != nil {
		return err
	}
	ws, _, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}

	c.conn = ws
	c.roomID = roomID
	c.self = self

	c.wg.Add(1)
	go c.readLoop(ws, roomID, self.ParticipantID)

	if err := c.writeFrame(ws, protocol.Frame{Op: protocol.OpTrack, Presence: &self}); err != nil {
		c.leaveLocked()
		return err
	}
	return nil
}

func (c *WSChannel) Broadcast(ctx context.Context, ev protocol.Event, at time.Time) error {
	env, err := protocol.Encode(ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	ws := c.conn
	env.SenderID = c.self.ParticipantID
	env.SenderName = c.self.DisplayName
	c.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}
	if at.IsZero() {
		at = time.Now()
	}
	env.Timestamp = at.UTC()

	return c.writeFrame(ws, protocol.Frame{Op: protocol.OpBroadcast, Envelope: &env})
}

func (c *WSChannel) Track(ctx context.Context, p protocol.Presence) error {
	c.mu.Lock()
	ws := c.conn
	if ws == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	p.ParticipantID = c.self.ParticipantID
	p.JoinedAt = c.self.JoinedAt
	c.self = p
	c.mu.Unlock()

	return c.writeFrame(ws, protocol.Frame{Op: protocol.OpTrack, Presence: &p})
}

func (c *WSChannel) Leave(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaveLocked()
	return nil
}

func (c *WSChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.leaveLocked()
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *WSChannel) leaveLocked() {
	if c.conn == nil {
		return
	}
	ws := c.conn
	_ = c.writeFrame(ws, protocol.Frame{Op: protocol.OpLeave})

	c.writeMu.Lock()
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	_ = ws.Close()

	c.logger.Info("left room", "room_id", c.roomID)
	c.conn = nil
	c.roomID = ""
}

func (c *WSChannel) writeFrame(ws *websocket.Conn, f protocol.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write %s frame: %w", f.Op, err)
	}
	return nil
}

func (c *WSChannel) readLoop(ws *websocket.Conn, roomID, selfID string) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		if c.conn == ws {
			c.conn = nil
			c.roomID = ""
			c.logger.Warn("gateway connection lost", "room_id", roomID)
		}
		c.mu.Unlock()
		_ = ws.Close()
	}()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPingHandler(func(data string) error {
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		var f protocol.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Error("failed to unmarshal frame", "error", err)
			continue
		}

		switch f.Op {
		case protocol.OpBroadcast:
			if f.Envelope != nil {
				c.dispatchEnvelope(selfID, *f.Envelope)
			}
		case protocol.OpPresence:
			c.dispatchPresence(protocol.Snapshot{RoomID: roomID, Members: f.Members, Left: f.Left})
		case protocol.OpError:
			if f.Error != nil {
				c.logger.Warn("gateway error", "code", f.Error.Code, "message", f.Error.Message)
			}
		}
	}
}
