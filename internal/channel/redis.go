package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
	"github.com/redis/go-redis/v9"
)

const (
	eventsChannelFmt = "room:%s:events"
	presenceKeyFmt   = "room:%s:presence"

	roomKeyTTL   = 24 * time.Hour
	leaveTimeout = 5 * time.Second
)

func EventsChannel(roomID string) string {
	return fmt.Sprintf(eventsChannelFmt, roomID)
}

func PresenceKey(roomID string) string {
	return fmt.Sprintf(presenceKeyFmt, roomID)
}

type Options struct {
	// PresenceTTL is how long a member survives without a heartbeat.
	PresenceTTL time.Duration
	Heartbeat   time.Duration
}

func DefaultOptions() Options {
	return Options{
		PresenceTTL: 45 * time.Second,
		Heartbeat:   15 * time.Second,
	}
}

type frameKind string

const (
	kindBroadcast frameKind = "broadcast"
	kindPresence  frameKind = "presence"
)

// busFrame is what travels on the room's pub/sub channel. Presence frames
// are notices only; receivers rebuild the membership from the presence hash.
type busFrame struct {
	Kind     frameKind          `json:"kind"`
	Envelope *protocol.Envelope `json:"envelope,omitempty"`
	Left     []string           `json:"left,omitempty"`
}

// RedisChannel implements Channel on Redis: broadcasts over pub/sub and
// membership in a per-room hash refreshed by a heartbeat.
type RedisChannel struct {
	dispatcher

	redis  *redis.Client
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	roomID string
	self   protocol.Presence
	pubsub *redis.PubSub
	cancel context.CancelFunc
	gen    uint64
	closed bool
	wg     sync.WaitGroup
}

func NewRedisChannel(client *redis.Client, opts Options, logger *slog.Logger) *RedisChannel {
	if opts.PresenceTTL <= 0 || opts.Heartbeat <= 0 {
		def := DefaultOptions()
		if opts.PresenceTTL <= 0 {
			opts.PresenceTTL = def.PresenceTTL
		}
		if opts.Heartbeat <= 0 {
			opts.Heartbeat = def.Heartbeat
		}
	}
	logger = logger.With("component", "redis_channel")
	return &RedisChannel{
		dispatcher: newDispatcher(logger),
		redis:      client,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

func (c *RedisChannel) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *RedisChannel) Self() protocol.Presence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}

func (c *RedisChannel) Connect(ctx context.Context, roomID string, self protocol.Presence) error {
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
	if c.pubsub != nil {
		if c.roomID == roomID {
			return nil
		}
		prevRoom, prevID := c.roomID, c.self.ParticipantID
		c.teardownLocked()
		if err := c.announceLeave(ctx, prevRoom, prevID); err != nil {
			c.logger.Warn("leave previous room", "room_id", prevRoom, "error", err)
		}
	}

	pubsub := c.redis.Subscribe(ctx, EventsChannel(roomID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", roomID, err)
	}

	now := c.now()
	if self.JoinedAt.IsZero() {
		self.JoinedAt = now
	}
	self.SeenAt = now

	runCtx, cancel := context.WithCancel(context.Background())
	c.gen++
	c.roomID = roomID
	c.self = self
	c.pubsub = pubsub
	c.cancel = cancel

	c.wg.Add(2)
	go c.receiveLoop(runCtx, c.gen, roomID, self.ParticipantID, pubsub)
	go c.heartbeatLoop(runCtx, c.gen)

	if err := c.writePresence(ctx, roomID, self); err != nil {
		c.teardownLocked()
		return err
	}
	if err := c.publishFrame(ctx, roomID, busFrame{Kind: kindPresence}); err != nil {
		c.teardownLocked()
		return err
	}

	c.logger.Info("joined room", "room_id", roomID, "participant_id", self.ParticipantID)
	return nil
}

func (c *RedisChannel) Broadcast(ctx context.Context, ev protocol.Event, at time.Time) error {
	env, err := protocol.Encode(ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.pubsub == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	env.SenderID = c.self.ParticipantID
	env.SenderName = c.self.DisplayName
	if at.IsZero() {
		at = c.now()
	}
	env.Timestamp = at.UTC()
	roomID := c.roomID
	c.mu.Unlock()

	return c.publishFrame(ctx, roomID, busFrame{Kind: kindBroadcast, Envelope: &env})
}

// Publish relays an already stamped envelope into the connected room.
func (c *RedisChannel) Publish(ctx context.Context, env protocol.Envelope) error {
	c.mu.Lock()
	if c.pubsub == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	roomID := c.roomID
	c.mu.Unlock()

	return c.publishFrame(ctx, roomID, busFrame{Kind: kindBroadcast, Envelope: &env})
}

func (c *RedisChannel) Track(ctx context.Context, p protocol.Presence) error {
	c.mu.Lock()
	if c.pubsub == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	p.ParticipantID = c.self.ParticipantID
	p.JoinedAt = c.self.JoinedAt
	p.SeenAt = c.now()
	c.self = p
	roomID := c.roomID
	c.mu.Unlock()

	if err := c.writePresence(ctx, roomID, p); err != nil {
		return err
	}
	return c.publishFrame(ctx, roomID, busFrame{Kind: kindPresence})
}

// Snapshot reads the current membership of the connected room.
func (c *RedisChannel) Snapshot(ctx context.Context) (protocol.Snapshot, error) {
	c.mu.Lock()
	roomID := c.roomID
	c.mu.Unlock()
	if roomID == "" {
		return protocol.Snapshot{}, ErrNotConnected
	}
	return ReadSnapshot(ctx, c.redis, roomID, c.opts.PresenceTTL, c.now())
}

func (c *RedisChannel) Leave(ctx context.Context) error {
	c.mu.Lock()
	if c.pubsub == nil {
		c.mu.Unlock()
		return nil
	}
	roomID, id := c.roomID, c.self.ParticipantID
	c.teardownLocked()
	c.mu.Unlock()

	c.logger.Info("left room", "room_id", roomID, "participant_id", id)
	return c.announceLeave(ctx, roomID, id)
}

// Close leaves the current room and waits for background loops to stop. It
// must not be called from a handler.
func (c *RedisChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	err := c.Leave(ctx)
	c.wg.Wait()
	return err
}

func (c *RedisChannel) teardownLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.pubsub != nil {
		_ = c.pubsub.Close()
		c.pubsub = nil
	}
	c.roomID = ""
	c.gen++
}

func (c *RedisChannel) active(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen && c.pubsub != nil
}

func (c *RedisChannel) announceLeave(ctx context.Context, roomID, id string) error {
	if err := c.redis.HDel(ctx, PresenceKey(roomID), id).Err(); err != nil {
		return fmt.Errorf("remove presence: %w", err)
	}
	return c.publishFrame(ctx, roomID, busFrame{Kind: kindPresence, Left: []string{id}})
}

func (c *RedisChannel) writePresence(ctx context.Context, roomID string, p protocol.Presence) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}

	key := PresenceKey(roomID)
	pipe := c.redis.TxPipeline()
	pipe.HSet(ctx, key, p.ParticipantID, data)
	pipe.Expire(ctx, key, roomKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write presence: %w", err)
	}
	return nil
}

func (c *RedisChannel) publishFrame(ctx context.Context, roomID string, f busFrame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if err := c.redis.Publish(ctx, EventsChannel(roomID), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", f.Kind, err)
	}
	return nil
}

func (c *RedisChannel) receiveLoop(ctx context.Context, gen uint64, roomID, selfID string, pubsub *redis.PubSub) {
	defer c.wg.Done()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return
			}
			c.logger.Error("receive room frame", "error", err, "room_id", roomID)
			return
		}
		if !c.active(gen) {
			return
		}

		var f busFrame
		if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
			c.logger.Error("unmarshal room frame", "error", err, "room_id", roomID)
			continue
		}

		switch f.Kind {
		case kindBroadcast:
			if f.Envelope != nil {
				c.dispatchEnvelope(selfID, *f.Envelope)
			}
		case kindPresence:
			snap, err := ReadSnapshot(ctx, c.redis, roomID, c.opts.PresenceTTL, c.now())
			if err != nil {
				c.logger.Error("read presence", "error", err, "room_id", roomID)
				continue
			}
			snap.Left = f.Left
			c.dispatchPresence(snap)
		default:
			c.logger.Debug("ignoring room frame", "kind", f.Kind, "room_id", roomID)
		}
	}
}

func (c *RedisChannel) heartbeatLoop(ctx context.Context, gen uint64) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.gen != gen || c.pubsub == nil {
				c.mu.Unlock()
				return
			}
			c.self.SeenAt = c.now()
			self, roomID := c.self, c.roomID
			c.mu.Unlock()

			if err := c.writePresence(ctx, roomID, self); err != nil {
				c.logger.Warn("presence heartbeat", "error", err, "room_id", roomID)
				continue
			}
			if err := c.pruneStale(ctx, roomID); err != nil {
				c.logger.Warn("prune presence", "error", err, "room_id", roomID)
			}
		}
	}
}

// pruneStale removes members whose heartbeat expired and announces them as
// departed.
func (c *RedisChannel) pruneStale(ctx context.Context, roomID string) error {
	key := PresenceKey(roomID)
	vals, err := c.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return err
	}

	now := c.now()
	var stale []string
	for id, raw := range vals {
		p, ok := parsePresence(raw)
		if !ok || expired(p, now, c.opts.PresenceTTL) {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	if err := c.redis.HDel(ctx, key, stale...).Err(); err != nil {
		return err
	}
	c.logger.Info("pruned stale members", "room_id", roomID, "count", len(stale))
	return c.publishFrame(ctx, roomID, busFrame{Kind: kindPresence, Left: stale})
}

// ReadSnapshot returns the live membership of roomID, skipping members whose
// heartbeat is older than ttl.
func ReadSnapshot(ctx context.Context, client *redis.Client, roomID string, ttl time.Duration, now time.Time) (protocol.Snapshot, error) {
	vals, err := client.HGetAll(ctx, PresenceKey(roomID)).Result()
	if err != nil {
		return protocol.Snapshot{}, fmt.Errorf("read presence: %w", err)
	}

	snap := protocol.Snapshot{
		RoomID:  roomID,
		Members: make([]protocol.Presence, 0, len(vals)),
	}
	for _, raw := range vals {
		p, ok := parsePresence(raw)
		if !ok || expired(p, now, ttl) {
			continue
		}
		snap.Members = append(snap.Members, p)
	}
	protocol.SortMembers(snap.Members)
	return snap, nil
}

func parsePresence(raw string) (protocol.Presence, bool) {
	var p protocol.Presence
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.ParticipantID == "" {
		return protocol.Presence{}, false
	}
	return p, true
}

func expired(p protocol.Presence, now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(p.SeenAt) > ttl
}
