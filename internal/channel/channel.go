package channel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
)

var (
	ErrNotConnected = errors.New("channel not connected")
	ErrClosed       = errors.New("channel closed")
)

// Message is a decoded broadcast together with its stamped envelope.
type Message struct {
	Envelope protocol.Envelope
	Event    protocol.Event
}

type (
	BroadcastHandler func(Message)
	PresenceHandler  func(protocol.Snapshot)
	EnvelopeHandler  func(protocol.Envelope)
)

// Channel is a room-scoped publish/subscribe connection with membership
// tracking. Broadcasts are never delivered back to their sender.
type Channel interface {
	// Connect joins roomID announcing self. Connecting to the room already
	// joined is a no-op; connecting to another room leaves the current one
	// first.
	Connect(ctx context.Context, roomID string, self protocol.Presence) error
	// Broadcast publishes ev stamped with at, the time of the write it
	// carries; a zero at stamps the current time.
	Broadcast(ctx context.Context, ev protocol.Event, at time.Time) error
	OnBroadcast(t protocol.EventType, fn BroadcastHandler)
	OnPresence(fn PresenceHandler)
	// Track replaces the published attributes of the connected participant.
	Track(ctx context.Context, p protocol.Presence) error
	Leave(ctx context.Context) error
	Close() error
	RoomID() string
}

type dispatcher struct {
	mu        sync.RWMutex
	broadcast map[protocol.EventType][]BroadcastHandler
	presence  []PresenceHandler
	envelope  []EnvelopeHandler
	logger    *slog.Logger
}

func newDispatcher(logger *slog.Logger) dispatcher {
	return dispatcher{
		broadcast: make(map[protocol.EventType][]BroadcastHandler),
		logger:    logger,
	}
}

func (d *dispatcher) OnBroadcast(t protocol.EventType, fn BroadcastHandler) {
	d.mu.Lock()
	d.broadcast[t] = append(d.broadcast[t], fn)
	d.mu.Unlock()
}

func (d *dispatcher) OnPresence(fn PresenceHandler) {
	d.mu.Lock()
	d.presence = append(d.presence, fn)
	d.mu.Unlock()
}

// OnEnvelope registers a handler receiving every non-self envelope before
// decoding, including types this build does not know.
func (d *dispatcher) OnEnvelope(fn EnvelopeHandler) {
	d.mu.Lock()
	d.envelope = append(d.envelope, fn)
	d.mu.Unlock()
}

func (d *dispatcher) dispatchEnvelope(selfID string, env protocol.Envelope) {
	if env.SenderID != "" && env.SenderID == selfID {
		return
	}

	d.mu.RLock()
	raw := append([]EnvelopeHandler(nil), d.envelope...)
	handlers := append([]BroadcastHandler(nil), d.broadcast[env.Type]...)
	d.mu.RUnlock()

	for _, fn := range raw {
		fn(env)
	}
	if len(handlers) == 0 {
		return
	}

	ev, err := protocol.Decode(env)
	if err != nil {
		d.logger.Warn("dropping undecodable broadcast", "type", env.Type, "sender_id", env.SenderID, "error", err)
		return
	}

	msg := Message{Envelope: env, Event: ev}
	for _, fn := range handlers {
		fn(msg)
	}
}

func (d *dispatcher) dispatchPresence(snap protocol.Snapshot) {
	d.mu.RLock()
	handlers := append([]PresenceHandler(nil), d.presence...)
	d.mu.RUnlock()

	for _, fn := range handlers {
		fn(snap)
	}
}
