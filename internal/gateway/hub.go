package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/channel"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
)

var (
	ErrHubClosed = errors.New("gateway is shutting down")

	errMissingEnvelope = errors.New("broadcast frame without envelope")
	errMissingPresence = errors.New("track frame without presence")
	errUnknownOp       = errors.New("unknown frame op")
)

const replaceTimeout = 5 * time.Second

type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// Hub keeps the live participant connections of this node. Rooms themselves
// live in Redis; the hub only relays.
type Hub struct {
	redis  *redis.Client
	opts   channel.Options
	limits RateLimiterConfig
	logger *slog.Logger

	mu       sync.Mutex
	rooms    map[string]map[string]*participantConn
	finished map[*participantConn]chan struct{}
	closed   bool
}

func NewHub(redisClient *redis.Client, opts channel.Options, limits RateLimiterConfig, logger *slog.Logger) *Hub {
	return &Hub{
		redis:    redisClient,
		opts:     opts,
		limits:   limits,
		logger:   logger.With("component", "hub"),
		rooms:    make(map[string]map[string]*participantConn),
		finished: make(map[*participantConn]chan struct{}),
	}
}

// Serve relays ws into roomID as self until the socket closes. A second
// connection of the same participant replaces the first.
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn, roomID string, self protocol.Presence) error {
	rc := channel.NewRedisChannel(h.redis, h.opts, h.logger)
	conn := newParticipantConn(ws, rc, roomID, self, h.limits, h.logger)

	rc.OnEnvelope(func(env protocol.Envelope) {
		conn.Send(protocol.Frame{Op: protocol.OpBroadcast, Envelope: &env})
	})
	rc.OnPresence(func(s protocol.Snapshot) {
		conn.Send(protocol.PresenceFrame(s))
	})

	old, done, err := h.register(conn)
	if err != nil {
		_ = ws.Close()
		return err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			conn.logger.Warn("leave room failed", "error", err)
		}
		h.unregister(conn)
		close(done)
	}()

	if old != nil {
		conn.logger.Info("replacing existing connection")
		_ = old.conn.Close()
		select {
		case <-old.done:
		case <-time.After(replaceTimeout):
			conn.logger.Warn("previous connection did not finish in time")
		}
	}

	if err := rc.Connect(ctx, roomID, self); err != nil {
		conn.logger.Error("join room failed", "error", err)
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = ws.WriteJSON(protocol.ErrorFrame("join_failed", "could not join room"))
		_ = conn.Close()
		return fmt.Errorf("join %s: %w", roomID, err)
	}
	go conn.writePump()

	conn.logger.Info("participant connected")
	conn.readPump(ctx)
	conn.logger.Info("participant disconnected")
	return nil
}

type replaced struct {
	conn *participantConn
	done chan struct{}
}

func (h *Hub) register(conn *participantConn) (*replaced, chan struct{}, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, nil, ErrHubClosed
	}

	members, ok := h.rooms[conn.roomID]
	if !ok {
		members = make(map[string]*participantConn)
		h.rooms[conn.roomID] = members
	}

	var old *replaced
	if existing, ok := members[conn.ParticipantID()]; ok {
		old = &replaced{conn: existing, done: h.finished[existing]}
	}

	done := make(chan struct{})
	members[conn.ParticipantID()] = conn
	h.finished[conn] = done
	return old, done, nil
}

func (h *Hub) unregister(conn *participantConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.finished, conn)
	members := h.rooms[conn.roomID]
	if members[conn.ParticipantID()] != conn {
		return
	}
	delete(members, conn.ParticipantID())
	if len(members) == 0 {
		delete(h.rooms, conn.roomID)
	}
}

func (h *Hub) IsConnected(roomID, participantID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.rooms[roomID][participantID]
	return ok
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := Stats{Rooms: len(h.rooms)}
	for _, members := range h.rooms {
		s.Connections += len(members)
	}
	return s
}

// Snapshot reads the authoritative membership of roomID from Redis.
func (h *Hub) Snapshot(ctx context.Context, roomID string) (protocol.Snapshot, error) {
	return channel.ReadSnapshot(ctx, h.redis, roomID, h.opts.PresenceTTL, time.Now())
}

// Close disconnects every participant. Their presence is removed as each
// connection winds down.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	var conns []*participantConn
	for _, members := range h.rooms {
		for _, c := range members {
			conns = append(conns, c)
		}
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	h.logger.Info("hub closed", "connections", len(conns))
	return nil
}
