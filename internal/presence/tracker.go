package presence

import (
	"sort"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
)

// Change is the difference between two membership snapshots.
type Change struct {
	Joined []protocol.Presence
	Left   []string
}

func (c Change) Empty() bool {
	return len(c.Joined) == 0 && len(c.Left) == 0
}

// Tracker turns repeated, possibly reordered membership snapshots into join
// and leave notifications. A participant is reported as joined once until it
// is reported as left, and a leave is only reported when the participant is
// absent from the snapshot itself; transport leave hints are not trusted.
//
// Tracker is not safe for concurrent use.
type Tracker struct {
	known map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{known: make(map[string]struct{})}
}

func (t *Tracker) Apply(snap protocol.Snapshot) Change {
	current := make(map[string]struct{}, len(snap.Members))
	var change Change

	for _, m := range snap.Members {
		if m.ParticipantID == "" {
			continue
		}
		if _, dup := current[m.ParticipantID]; dup {
			continue
		}
		current[m.ParticipantID] = struct{}{}

		if _, ok := t.known[m.ParticipantID]; !ok {
			t.known[m.ParticipantID] = struct{}{}
			change.Joined = append(change.Joined, m)
		}
	}

	for id := range t.known {
		if _, ok := current[id]; !ok {
			delete(t.known, id)
			change.Left = append(change.Left, id)
		}
	}
	sort.Strings(change.Left)

	return change
}

func (t *Tracker) Known(id string) bool {
	_, ok := t.known[id]
	return ok
}

func (t *Tracker) Reset() {
	t.known = make(map[string]struct{})
}
