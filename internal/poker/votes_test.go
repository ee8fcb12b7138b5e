package poker

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
)

func TestNearestCard(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{5.33, "5"},
		{6.5, "5"},
		{6.6, "8"},
		{1.5, "1"},
		{17, "13"},
		{100, "21"},
		{-3, "0"},
	}
	for _, tt := range tests {
		if got := NearestCard(tt.in); got != tt.want {
			t.Errorf("NearestCard(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEffectiveVotes(t *testing.T) {
	tests := []struct {
		name  string
		round Round
		want  map[string]string
	}{
		{
			name: "blocked gets nearest card to average",
			round: Round{
				Order:   []string{"a", "b", "c", "d"},
				Votes:   map[string]string{"a": "3", "b": "5", "c": "8", "d": "21"},
				Blocked: map[string]string{"d": "a"},
			},
			want: map[string]string{"a": "3", "b": "5", "c": "8", "d": "5"},
		},
		{
			name: "blocked without numeric votes gets lowest card",
			round: Round{
				Order:   []string{"a", "b"},
				Votes:   map[string]string{},
				Blocked: map[string]string{"b": "a"},
			},
			want: map[string]string{"a": "", "b": "0"},
		},
		{
			name: "copy takes target vote",
			round: Round{
				Order:  []string{"c", "t"},
				Votes:  map[string]string{"c": "1", "t": "8"},
				Copies: map[string]string{"c": "t"},
			},
			want: map[string]string{"c": "8", "t": "8"},
		},
		{
			name: "copy chain resolves transitively",
			round: Round{
				Order:  []string{"a", "b", "c"},
				Votes:  map[string]string{"c": "13"},
				Copies: map[string]string{"a": "b", "b": "c"},
			},
			want: map[string]string{"a": "13", "b": "13", "c": "13"},
		},
		{
			name: "copy cycle yields no vote",
			round: Round{
				Order:  []string{"a", "b", "c"},
				Votes:  map[string]string{"a": "2", "b": "3", "c": "5"},
				Copies: map[string]string{"a": "b", "b": "a"},
			},
			want: map[string]string{"a": "", "b": "", "c": "5"},
		},
		{
			name: "copy of departed participant yields no vote",
			round: Round{
				Order:  []string{"a"},
				Votes:  map[string]string{"a": "2", "gone": "8"},
				Copies: map[string]string{"a": "gone"},
			},
			want: map[string]string{"a": ""},
		},
		{
			name: "block precedes copy",
			round: Round{
				Order:   []string{"a", "b", "c"},
				Votes:   map[string]string{"b": "2", "c": "2"},
				Blocked: map[string]string{"a": "c"},
				Copies:  map[string]string{"a": "b"},
			},
			want: map[string]string{"a": "2", "b": "2", "c": "2"},
		},
		{
			name: "copying a blocked participant takes the substitute",
			round: Round{
				Order:   []string{"a", "b", "c"},
				Votes:   map[string]string{"b": "21", "c": "1"},
				Blocked: map[string]string{"b": "c"},
				Copies:  map[string]string{"a": "b"},
			},
			want: map[string]string{"a": "1", "b": "1", "c": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveVotes(tt.round)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for id, want := range tt.want {
				if got[id] != want {
					t.Errorf("vote[%s] = %q, want %q", id, got[id], want)
				}
			}
		})
	}
}

func TestCopyReveals(t *testing.T) {
	r := Round{
		Order:  []string{"a", "b"},
		Votes:  map[string]string{"b": "3"},
		Copies: map[string]string{"a": "b"},
	}
	reveals := CopyReveals(r, EffectiveVotes(r))
	if len(reveals) != 1 {
		t.Fatalf("expected 1 reveal, got %d", len(reveals))
	}
	if reveals[0] != (CopyReveal{CopierID: "a", TargetID: "b", Vote: "3"}) {
		t.Errorf("unexpected reveal: %+v", reveals[0])
	}
}

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name      string
		votes     map[string]string
		weights   map[string]int
		average   float64
		consensus Consensus
		modes     []string
	}{
		{
			name:      "no votes",
			votes:     map[string]string{"a": "", "b": "?"},
			consensus: ConsensusNone,
		},
		{
			name:      "perfect",
			votes:     map[string]string{"a": "5", "b": "5"},
			average:   5,
			consensus: ConsensusPerfect,
			modes:     []string{"5"},
		},
		{
			name:      "close",
			votes:     map[string]string{"a": "1", "b": "3"},
			average:   2,
			consensus: ConsensusClose,
			modes:     []string{"1", "3"},
		},
		{
			name:      "mixed",
			votes:     map[string]string{"a": "3", "b": "8", "c": "8"},
			average:   19.0 / 3,
			consensus: ConsensusMixed,
			modes:     []string{"8"},
		},
		{
			name:      "high variance",
			votes:     map[string]string{"a": "0", "b": "21"},
			average:   10.5,
			consensus: ConsensusHighVariance,
			modes:     []string{"0", "21"},
		},
		{
			name:      "double weight",
			votes:     map[string]string{"a": "2", "b": "5"},
			weights:   map[string]int{"b": 2},
			average:   4,
			consensus: ConsensusMixed,
			modes:     []string{"5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeStats(tt.votes, tt.weights)
			if s.Average != tt.average {
				t.Errorf("average = %v, want %v", s.Average, tt.average)
			}
			if s.Consensus != tt.consensus {
				t.Errorf("consensus = %q, want %q", s.Consensus, tt.consensus)
			}
			if !slices.Equal(s.Modes, tt.modes) {
				t.Errorf("modes = %v, want %v", s.Modes, tt.modes)
			}
		})
	}
}

func TestLWW(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var r lww[int]

	if !r.set(1, base, "b") {
		t.Fatal("first write should apply")
	}
	if r.set(2, base.Add(-time.Second), "z") {
		t.Error("older write should be rejected")
	}
	if r.set(3, base, "c") != true {
		t.Error("equal time with higher writer id should apply")
	}
	if r.set(4, base, "a") {
		t.Error("equal time with lower writer id should be rejected")
	}
	if r.set(5, base, "c") {
		t.Error("duplicate write should be rejected")
	}
	if got := r.get(); got != 3 {
		t.Errorf("value = %d, want 3", got)
	}
}

func TestTicketBook(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newTicketBook()

	b.upsert(protocol.Ticket{ID: "t1", Key: "PP-1"}, base, "a")
	b.upsert(protocol.Ticket{ID: "t2", Key: "PP-2", Summary: "Second"}, base, "a")

	if got, _ := b.get("t1"); got.Summary != "No summary" {
		t.Errorf("summary = %q, want default", got.Summary)
	}

	// A removal wins over an older edit delivered late.
	if !b.remove("t1", base.Add(2*time.Second), "b") {
		t.Fatal("remove should apply")
	}
	if b.upsert(protocol.Ticket{ID: "t1", Key: "PP-1", Summary: "late"}, base.Add(time.Second), "a") {
		t.Error("stale edit resurrected a removed ticket")
	}
	if _, ok := b.get("t1"); ok {
		t.Error("t1 should stay removed")
	}

	list := b.list()
	if len(list) != 1 || list[0].ID != "t2" {
		t.Errorf("list = %+v, want only t2", list)
	}

	b.selectTicket("t2", base, "a")
	if b.activeID() != "t2" {
		t.Errorf("active = %q, want t2", b.activeID())
	}
	b.remove("t2", base.Add(3*time.Second), "a")
	if b.activeID() != "" {
		t.Errorf("active = %q after removal, want empty", b.activeID())
	}
}

func TestActionLogCap(t *testing.T) {
	l := NewActionLog(MaxLogEntries)
	for i := 0; i < 150; i++ {
		l.Add(LogEntry{Kind: LogInfo, Message: fmt.Sprintf("entry %d", i)})
	}
	if l.Len() != MaxLogEntries {
		t.Fatalf("len = %d, want %d", l.Len(), MaxLogEntries)
	}
	entries := l.Entries()
	if entries[0].Message != "entry 50" {
		t.Errorf("oldest = %q, want entry 50", entries[0].Message)
	}
	if entries[len(entries)-1].ID != "log_150" {
		t.Errorf("newest id = %q, want log_150", entries[len(entries)-1].ID)
	}

	l.Clear()
	if l.Len() != 0 {
		t.Errorf("len after clear = %d", l.Len())
	}
}

func TestTakeCard(t *testing.T) {
	now := time.Now()
	inv := starterInventory("a", now)
	inv = append(inv, newPowerCard(protocol.CardBlock, "a", now))

	card, ok := findCard(inv, protocol.CardBlock)
	if !ok {
		t.Fatal("expected a block card")
	}
	rest, taken, ok := takeCard(inv, card.ID)
	if !ok || taken.ID != card.ID {
		t.Fatal("takeCard failed")
	}
	if len(rest) != len(inv)-1 {
		t.Errorf("len = %d, want %d", len(rest), len(inv)-1)
	}
	if _, ok := findCard(rest, protocol.CardBlock); !ok {
		t.Error("second block card should remain")
	}
	if _, _, ok := takeCard(rest, card.ID); ok {
		t.Error("a card can only be taken once")
	}
}

func TestIsPermutation(t *testing.T) {
	if !isPermutation([]int{2, 0, 1}, 3) {
		t.Error("valid permutation rejected")
	}
	for _, bad := range [][]int{{0, 1}, {0, 0, 1}, {0, 1, 3}, {-1, 0, 1}} {
		if isPermutation(bad, 3) {
			t.Errorf("%v accepted", bad)
		}
	}
}
