package channel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func newTestChannel(t *testing.T, client *redis.Client) *RedisChannel {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewRedisChannel(client, Options{PresenceTTL: time.Minute, Heartbeat: time.Hour}, logger)
	t.Cleanup(func() { c.Close() })
	return c
}

func waitSnapshot(t *testing.T, ch <-chan protocol.Snapshot, match func(protocol.Snapshot) bool) protocol.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if match(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for presence snapshot")
		}
	}
}

func memberCount(n int) func(protocol.Snapshot) bool {
	return func(s protocol.Snapshot) bool { return len(s.Members) == n }
}

func TestRedisChannel_BroadcastSkipsSender(t *testing.T) {
	client, _ := newTestRedis(t)
	ctx := context.Background()

	alice := newTestChannel(t, client)
	bob := newTestChannel(t, client)

	aliceGot := make(chan Message, 4)
	bobGot := make(chan Message, 4)
	alice.OnBroadcast(protocol.TypeRevealCards, func(m Message) { aliceGot <- m })
	bob.OnBroadcast(protocol.TypeRevealCards, func(m Message) { bobGot <- m })

	if err := alice.Connect(ctx, "AB12CD34", protocol.Presence{ParticipantID: "alice", DisplayName: "Alice"}); err != nil {
		t.Fatalf("alice connect: %v", err)
	}
	if err := bob.Connect(ctx, "AB12CD34", protocol.Presence{ParticipantID: "bob"}); err != nil {
		t.Fatalf("bob connect: %v", err)
	}

	if err := alice.Broadcast(ctx, protocol.RevealCards{}, time.Time{}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case m := <-bobGot:
		if m.Envelope.SenderID != "alice" {
			t.Errorf("expected sender alice, got %s", m.Envelope.SenderID)
		}
		if m.Envelope.SenderName != "Alice" {
			t.Errorf("expected sender name Alice, got %s", m.Envelope.SenderName)
		}
		if m.Envelope.Timestamp.IsZero() {
			t.Error("expected timestamp to be stamped")
		}
		if _, ok := m.Event.(protocol.RevealCards); !ok {
			t.Errorf("expected RevealCards, got %T", m.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bob did not receive broadcast")
	}

	select {
	case m := <-aliceGot:
		t.Errorf("sender received its own broadcast: %+v", m.Envelope)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisChannel_PresenceSnapshots(t *testing.T) {
	client, _ := newTestRedis(t)
	ctx := context.Background()

	alice := newTestChannel(t, client)
	bob := newTestChannel(t, client)

	snaps := make(chan protocol.Snapshot, 16)
	alice.OnPresence(func(s protocol.Snapshot) { snaps <- s })

	base := time.Unix(1000, 0)
	if err := alice.Connect(ctx, "AB12CD34", protocol.Presence{ParticipantID: "alice", JoinedAt: base}); err != nil {
		t.Fatalf("alice connect: %v", err)
	}
	waitSnapshot(t, snaps, memberCount(1))

	if err := bob.Connect(ctx, "AB12CD34", protocol.Presence{ParticipantID: "bob", JoinedAt: base.Add(time.Second)}); err != nil {
		t.Fatalf("bob connect: %v", err)
	}
	s := waitSnapshot(t, snaps, memberCount(2))
	if s.Members[0].ParticipantID != "alice" || s.Members[1].ParticipantID != "bob" {
		t.Errorf("expected arrival order [alice bob], got %+v", s.Members)
	}

	if err := bob.Track(ctx, protocol.Presence{HasVoted: true, Vote: "5"}); err != nil {
		t.Fatalf("track: %v", err)
	}
	s = waitSnapshot(t, snaps, func(s protocol.Snapshot) bool {
		return len(s.Members) == 2 && s.Members[1].HasVoted
	})
	if s.Members[1].Vote != "5" {
		t.Errorf("expected tracked vote 5, got %q", s.Members[1].Vote)
	}
	if !s.Members[1].JoinedAt.Equal(base.Add(time.Second)) {
		t.Error("track must keep the original join time")
	}

	if err := bob.Leave(ctx); err != nil {
		t.Fatalf("leave: %v", err)
	}
	s = waitSnapshot(t, snaps, memberCount(1))
	if len(s.Left) != 1 || s.Left[0] != "bob" {
		t.Errorf("expected leave hint [bob], got %v", s.Left)
	}
}

func TestRedisChannel_ConnectIdempotentAndSwitch(t *testing.T) {
	client, mr := newTestRedis(t)
	ctx := context.Background()

	c := newTestChannel(t, client)
	self := protocol.Presence{ParticipantID: "alice"}

	if err := c.Connect(ctx, "ROOMA", self); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Connect(ctx, "ROOMA", self); err != nil {
		t.Fatalf("reconnect same room: %v", err)
	}
	if c.RoomID() != "ROOMA" {
		t.Errorf("expected ROOMA, got %s", c.RoomID())
	}

	if err := c.Connect(ctx, "ROOMB", self); err != nil {
		t.Fatalf("switch room: %v", err)
	}
	if c.RoomID() != "ROOMB" {
		t.Errorf("expected ROOMB, got %s", c.RoomID())
	}

	if mr.Exists(PresenceKey("ROOMA")) {
		fields, _ := mr.HKeys(PresenceKey("ROOMA"))
		if len(fields) != 0 {
			t.Errorf("expected no presence left in ROOMA, got %v", fields)
		}
	}
	fields, err := mr.HKeys(PresenceKey("ROOMB"))
	if err != nil {
		t.Fatalf("hkeys: %v", err)
	}
	if len(fields) != 1 || fields[0] != "alice" {
		t.Errorf("expected alice in ROOMB, got %v", fields)
	}
}

func TestRedisChannel_NotConnected(t *testing.T) {
	client, _ := newTestRedis(t)
	c := newTestChannel(t, client)
	ctx := context.Background()

	if err := c.Broadcast(ctx, protocol.RevealCards{}, time.Time{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("broadcast: expected ErrNotConnected, got %v", err)
	}
	if err := c.Track(ctx, protocol.Presence{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("track: expected ErrNotConnected, got %v", err)
	}
	if err := c.Leave(ctx); err != nil {
		t.Errorf("leave while disconnected should be a no-op, got %v", err)
	}
}

func TestRedisChannel_ConnectAfterClose(t *testing.T) {
	client, _ := newTestRedis(t)
	c := newTestChannel(t, client)
	c.Close()

	err := c.Connect(context.Background(), "ROOMA", protocol.Presence{ParticipantID: "alice"})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestReadSnapshot_SkipsExpired(t *testing.T) {
	client, mr := newTestRedis(t)
	now := time.Unix(5000, 0)

	fresh, _ := json.Marshal(protocol.Presence{ParticipantID: "fresh", SeenAt: now.Add(-10 * time.Second)})
	stale, _ := json.Marshal(protocol.Presence{ParticipantID: "stale", SeenAt: now.Add(-10 * time.Minute)})
	mr.HSet(PresenceKey("ROOMA"), "fresh", string(fresh))
	mr.HSet(PresenceKey("ROOMA"), "stale", string(stale))
	mr.HSet(PresenceKey("ROOMA"), "junk", "not json")

	snap, err := ReadSnapshot(context.Background(), client, "ROOMA", time.Minute, now)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(snap.Members) != 1 || snap.Members[0].ParticipantID != "fresh" {
		t.Errorf("expected only fresh member, got %+v", snap.Members)
	}
}

func TestRedisChannel_PruneStale(t *testing.T) {
	client, mr := newTestRedis(t)
	ctx := context.Background()

	c := newTestChannel(t, client)
	snaps := make(chan protocol.Snapshot, 8)
	c.OnPresence(func(s protocol.Snapshot) { snaps <- s })

	if err := c.Connect(ctx, "ROOMA", protocol.Presence{ParticipantID: "alice"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitSnapshot(t, snaps, memberCount(1))

	ghost, _ := json.Marshal(protocol.Presence{ParticipantID: "ghost", SeenAt: time.Now().Add(-time.Hour)})
	mr.HSet(PresenceKey("ROOMA"), "ghost", string(ghost))

	if err := c.pruneStale(ctx, "ROOMA"); err != nil {
		t.Fatalf("prune: %v", err)
	}
	s := waitSnapshot(t, snaps, func(s protocol.Snapshot) bool { return len(s.Left) > 0 })
	if s.Left[0] != "ghost" {
		t.Errorf("expected ghost to be announced as left, got %v", s.Left)
	}
	fields, err := mr.HKeys(PresenceKey("ROOMA"))
	if err != nil {
		t.Fatalf("hkeys: %v", err)
	}
	if len(fields) != 1 || fields[0] != "alice" {
		t.Errorf("expected ghost to be removed from the presence hash, got %v", fields)
	}
}

func TestRedisChannel_BroadcastKeepsWriteStamp(t *testing.T) {
	client, _ := newTestRedis(t)
	ctx := context.Background()

	alice := newTestChannel(t, client)
	bob := newTestChannel(t, client)

	got := make(chan Message, 1)
	bob.OnBroadcast(protocol.TypeTicketEdit, func(m Message) { got <- m })

	if err := alice.Connect(ctx, "AB12CD34", protocol.Presence{ParticipantID: "alice"}); err != nil {
		t.Fatalf("alice connect: %v", err)
	}
	if err := bob.Connect(ctx, "AB12CD34", protocol.Presence{ParticipantID: "bob"}); err != nil {
		t.Fatalf("bob connect: %v", err)
	}

	written := time.Date(2025, 3, 1, 9, 30, 0, 123, time.UTC)
	if err := alice.Broadcast(ctx, protocol.TicketEdit{Ticket: protocol.Ticket{ID: "t1", Key: "PP-1"}}, written); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case m := <-got:
		if !m.Envelope.Timestamp.Equal(written) {
			t.Errorf("expected stamp %v, got %v", written, m.Envelope.Timestamp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bob did not receive broadcast")
	}
}
