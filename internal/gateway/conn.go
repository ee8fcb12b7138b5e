package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/channel"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBuffer     = 128
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// participantConn is one participant's WebSocket, relayed into its room
// through a dedicated RedisChannel.
type participantConn struct {
	ws      *websocket.Conn
	room    *channel.RedisChannel
	roomID  string
	self    protocol.Presence
	limiter *rate.Limiter
	logger  *slog.Logger

	send   chan protocol.Frame
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func newParticipantConn(ws *websocket.Conn, room *channel.RedisChannel, roomID string, self protocol.Presence, limits RateLimiterConfig, logger *slog.Logger) *participantConn {
	return &participantConn{
		ws:      ws,
		room:    room,
		roomID:  roomID,
		self:    self,
		limiter: rate.NewLimiter(rate.Limit(limits.RequestsPerSecond), limits.Burst),
		logger:  logger.With("room_id", roomID, "participant_id", self.ParticipantID),
		send:    make(chan protocol.Frame, sendBuffer),
		done:    make(chan struct{}),
	}
}

func (c *participantConn) ParticipantID() string {
	return c.self.ParticipantID
}

func (c *participantConn) RoomID() string {
	return c.roomID
}

// Send queues a frame for the write pump. Frames are dropped when the
// connection is closed or the buffer is full.
func (c *participantConn) Send(f protocol.Frame) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}

	select {
	case c.send <- f:
	default:
		c.logger.Warn("send buffer full, dropping frame", "op", f.Op)
	}
}

func (c *participantConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	return c.ws.Close()
}

// readPump relays inbound frames until the socket fails or the participant
// leaves. Only readPump touches c.self after start.
func (c *participantConn) readPump(ctx context.Context) {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", "error", err)
			}
			return
		}

		var f protocol.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.Send(protocol.ErrorFrame("invalid_frame", "frame is not valid JSON"))
			continue
		}

		if f.Op == protocol.OpLeave {
			return
		}
		if !c.limiter.Allow() {
			c.Send(protocol.ErrorFrame("rate_limit_exceeded", "too many frames"))
			continue
		}
		if err := c.handleFrame(ctx, f); err != nil {
			c.logger.Warn("frame rejected", "op", f.Op, "error", err)
			c.Send(protocol.ErrorFrame("relay_failed", err.Error()))
		}
	}
}

func (c *participantConn) handleFrame(ctx context.Context, f protocol.Frame) error {
	switch f.Op {
	case protocol.OpBroadcast:
		if f.Envelope == nil || f.Envelope.Type == "" {
			return errMissingEnvelope
		}
		env := *f.Envelope
		env.SenderID = c.self.ParticipantID
		env.SenderName = c.self.DisplayName
		if env.Timestamp.IsZero() {
			env.Timestamp = time.Now().UTC()
		}
		return c.room.Publish(ctx, env)

	case protocol.OpTrack:
		if f.Presence == nil {
			return errMissingPresence
		}
		p := *f.Presence
		p.ParticipantID = c.self.ParticipantID
		p.DisplayName = displayName(p.DisplayName)
		c.self.DisplayName = p.DisplayName
		return c.room.Track(ctx, p)

	default:
		return errUnknownOp
	}
}

func (c *participantConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))

			data, err := json.Marshal(f)
			if err != nil {
				c.logger.Error("marshal error", "error", err)
				continue
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("write error", "error", err)
				_ = c.Close()
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}
