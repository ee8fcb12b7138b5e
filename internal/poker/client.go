package poker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/channel"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/presence"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/shared"
)

// IssueSearcher queries an external issue tracker.
type IssueSearcher interface {
	SearchIssues(ctx context.Context, query string) ([]protocol.Ticket, error)
}

type Config struct {
	ParticipantID string
	DisplayName   string

	Issues   IssueSearcher
	OnNotify func(Notification)

	QuickDrawDuration time.Duration
	Now               func() time.Time
	AfterFunc         func(time.Duration, func()) Timer
	Rand              *rand.Rand
}

// Client is one participant's replica of a room. Local actions update the
// replica first and then broadcast; remote events arriving through the
// channel are applied to the same state.
type Client struct {
	ch       channel.Channel
	logger   *slog.Logger
	issues   IssueSearcher
	onNotify func(Notification)

	quickDrawDuration time.Duration
	now               func() time.Time
	afterFunc         func(time.Duration, func()) Timer
	rnd               *rand.Rand

	mu       sync.Mutex
	selfID   string
	selfName string
	roomID   string
	joinedAt time.Time

	tracker   *presence.Tracker
	members   []protocol.Presence
	names     map[string]string
	creatorID string
	roleEpoch uint64
	roleKnown bool

	game     protocol.GameState
	vote     string
	hasVoted bool

	inventories map[string][]PowerCard
	targeting   *Targeting
	blocked     map[string]string
	copies      map[string]string
	shuffle     *ShuffleEffect

	quick         quickDraw
	doublePower   map[string]bool
	pendingDouble map[string]bool

	counter lww[int]
	tickets *ticketBook
	log     *ActionLog

	notes     []Notification
	noteSeq   int
	issueList []protocol.Ticket
	issueErr  string
	lastStamp time.Time
}

func NewClient(ch channel.Channel, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ParticipantID == "" {
		return nil, errors.New("participant id required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if cfg.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		cfg.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if cfg.QuickDrawDuration <= 0 {
		cfg.QuickDrawDuration = QuickDrawDuration
	}

	c := &Client{
		ch:                ch,
		logger:            logger.With("component", "poker", "participant_id", cfg.ParticipantID),
		issues:            cfg.Issues,
		onNotify:          cfg.OnNotify,
		quickDrawDuration: cfg.QuickDrawDuration,
		now:               cfg.Now,
		afterFunc:         cfg.AfterFunc,
		rnd:               cfg.Rand,
		selfID:            cfg.ParticipantID,
		selfName:          strings.TrimSpace(cfg.DisplayName),
		tracker:           presence.NewTracker(),
		inventories:       make(map[string][]PowerCard),
		log:               NewActionLog(MaxLogEntries),
	}
	c.resetRoomLocked()

	for _, t := range protocol.EventTypes {
		ch.OnBroadcast(t, c.handleMessage)
	}
	ch.OnPresence(c.handlePresence)
	return c, nil
}

// outbox collects what a state change must emit once the lock is released.
type outbox struct {
	events []pending
	track  bool
	notes  []Notification
}

type pending struct {
	ev protocol.Event
	at time.Time
}

func (o *outbox) emit(ev protocol.Event) {
	o.events = append(o.events, pending{ev: ev})
}

// emitAt broadcasts ev under the stamp of the local write it carries.
func (o *outbox) emitAt(ev protocol.Event, at time.Time) {
	o.events = append(o.events, pending{ev: ev, at: at})
}

func (c *Client) flush(ctx context.Context, out outbox) {
	for _, p := range out.events {
		if err := c.ch.Broadcast(ctx, p.ev, p.at); err != nil {
			c.transportFailed(string(p.ev.Type()), err)
		}
	}
	if out.track {
		c.mu.Lock()
		joined := c.roomID != ""
		p := c.presenceLocked()
		c.mu.Unlock()
		if joined {
			if err := c.ch.Track(ctx, p); err != nil {
				c.transportFailed("track", err)
			}
		}
	}
	for _, n := range out.notes {
		c.deliver(n)
	}
}

func (c *Client) transportFailed(op string, err error) {
	c.logger.Warn("transport failure", "op", op, "error", err)
	c.mu.Lock()
	n := c.noteLocked(SeverityError, "Error: "+err.Error())
	c.mu.Unlock()
	c.deliver(n)
}

func (c *Client) deliver(n Notification) {
	if c.onNotify != nil {
		c.onNotify(n)
	}
}

func (c *Client) noteLocked(sev Severity, msg string) Notification {
	c.noteSeq++
	n := Notification{ID: c.noteSeq, Message: msg, Severity: sev, At: c.now()}
	c.notes = append(c.notes, n)
	if over := len(c.notes) - maxNotifications; over > 0 {
		c.notes = append(c.notes[:0:0], c.notes[over:]...)
	}
	return n
}

func (c *Client) logLocked(kind LogKind, actorID, msg string) {
	c.log.Add(LogEntry{
		Kind:      kind,
		ActorID:   actorID,
		ActorName: c.nameLocked(actorID),
		Message:   msg,
		At:        c.now(),
	})
}

// stamp returns a strictly increasing local write time.
func (c *Client) stamp() time.Time {
	t := c.now().UTC()
	if !t.After(c.lastStamp) {
		t = c.lastStamp.Add(time.Nanosecond)
	}
	c.lastStamp = t
	return t
}

func (c *Client) nameLocked(id string) string {
	if id == c.selfID {
		if c.selfName != "" {
			return c.selfName
		}
		return "You"
	}
	if n, ok := c.names[id]; ok && n != "" {
		return n
	}
	if id == "" {
		return "Someone"
	}
	return "Anonymous"
}

func (c *Client) presenceLocked() protocol.Presence {
	return protocol.Presence{
		ParticipantID:  c.selfID,
		DisplayName:    c.selfName,
		HasVoted:       c.hasVoted,
		Vote:           c.vote,
		AvailableCards: cardTypes(c.inventories[c.roomID]),
		JoinedAt:       c.joinedAt,
	}
}

// resetRoomLocked clears everything scoped to the current room. Power card
// inventories and the issue list survive.
func (c *Client) resetRoomLocked() {
	c.tracker.Reset()
	c.members = nil
	c.names = make(map[string]string)
	c.creatorID = ""
	c.roleEpoch = 0
	c.roleKnown = false
	c.game = protocol.GameVoting
	c.vote = ""
	c.hasVoted = false
	c.targeting = nil
	c.blocked = make(map[string]string)
	c.copies = make(map[string]string)
	c.shuffle = nil
	c.quick.stop()
	c.quick.picks = nil
	c.doublePower = make(map[string]bool)
	c.pendingDouble = make(map[string]bool)
	c.counter = lww[int]{}
	c.tickets = newTicketBook()
	c.log.Clear()
}

func (c *Client) SelfID() string {
	return c.selfID
}

func (c *Client) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// Join enters roomID. Joining the current room again is a no-op; joining
// another room leaves the current one.
func (c *Client) Join(ctx context.Context, roomID string) error {
	id, err := shared.NormalizeRoomID(roomID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.roomID == id {
		c.mu.Unlock()
		return nil
	}
	c.resetRoomLocked()
	c.roomID = id
	c.joinedAt = c.now().UTC()
	if _, ok := c.inventories[id]; !ok {
		c.inventories[id] = starterInventory(c.selfID, c.joinedAt)
	}
	self := c.presenceLocked()
	c.mu.Unlock()

	if err := c.ch.Connect(ctx, id, self); err != nil {
		c.mu.Lock()
		if c.roomID == id {
			c.roomID = ""
		}
		n := c.noteLocked(SeverityError, "Error: "+err.Error())
		c.mu.Unlock()
		c.deliver(n)
		return fmt.Errorf("join %s: %w", id, err)
	}

	c.logger.Info("joined room", "room_id", id)
	return nil
}

func (c *Client) Leave(ctx context.Context) error {
	c.mu.Lock()
	if c.roomID == "" {
		c.mu.Unlock()
		return nil
	}
	roomID := c.roomID
	c.resetRoomLocked()
	c.roomID = ""
	c.mu.Unlock()

	if err := c.ch.Leave(ctx); err != nil {
		c.transportFailed("leave", err)
		return fmt.Errorf("leave %s: %w", roomID, err)
	}
	c.logger.Info("left room", "room_id", roomID)
	return nil
}

func (c *Client) handlePresence(snap protocol.Snapshot) {
	c.mu.Lock()
	if c.roomID == "" || (snap.RoomID != "" && snap.RoomID != c.roomID) {
		c.mu.Unlock()
		return
	}

	change := c.tracker.Apply(snap)
	c.members = append([]protocol.Presence(nil), snap.Members...)
	for _, m := range snap.Members {
		if m.DisplayName != "" {
			c.names[m.ParticipantID] = m.DisplayName
		}
	}

	var out outbox
	newcomer := false
	for _, p := range change.Joined {
		if p.ParticipantID == c.selfID {
			continue
		}
		newcomer = true
		c.logLocked(LogJoin, p.ParticipantID, c.nameLocked(p.ParticipantID)+" joined the room")
	}
	for _, id := range change.Left {
		c.logLocked(LogLeave, id, c.nameLocked(id)+" left the room")
	}

	if claim := c.resolveRoleLocked(change); claim != nil {
		out.emit(*claim)
	}
	if newcomer && c.creatorID == c.selfID {
		out.emit(c.syncLocked())
	}
	c.mu.Unlock()

	if !change.Empty() {
		c.logger.Debug("membership changed", "joined", len(change.Joined), "left", change.Left)
	}
	c.flush(context.Background(), out)
}

func (c *Client) syncLocked() protocol.StateSync {
	users := make([]string, len(c.members))
	for i, m := range c.members {
		users[i] = m.ParticipantID
	}
	s := protocol.StateSync{
		Count:       c.counter.get(),
		CountStamp:  c.counter.stamp(),
		CreatorID:   c.creatorID,
		RoleEpoch:   c.roleEpoch,
		ActiveUsers: users,
		GameState:   c.game,
	}
	c.tickets.fill(&s)
	if c.game == protocol.GameQuickDraw && c.quick.active {
		q := c.quick.view()
		s.QuickDraw = &protocol.QuickDrawSync{EndsAt: q.EndsAt, Cards: q.Cards, Picks: q.Picks}
	}
	return s
}

func (c *Client) requireRoomLocked() error {
	if c.roomID == "" {
		return ErrNotJoined
	}
	return nil
}

func (c *Client) requireCreatorLocked() error {
	if err := c.requireRoomLocked(); err != nil {
		return err
	}
	if c.creatorID != c.selfID {
		return ErrNotCreator
	}
	return nil
}
