package poker

import (
	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
)

const NoVote = "No Vote"

type ParticipantView struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	HasVoted    bool                `json:"hasVoted"`
	Vote        string              `json:"vote,omitempty"`
	Cards       []protocol.CardType `json:"cards"`
	IsCreator   bool                `json:"isCreator"`
	IsSelf      bool                `json:"isSelf"`
	Blocked     bool                `json:"blocked"`
	DoublePower bool                `json:"doublePower"`
}

// RoomState is a read-only snapshot of the local replica.
type RoomState struct {
	RoomID       string             `json:"roomId"`
	SelfID       string             `json:"selfId"`
	CreatorID    string             `json:"creatorId"`
	GameState    protocol.GameState `json:"gameState"`
	Participants []ParticipantView  `json:"participants"`

	Vote      string         `json:"vote,omitempty"`
	HasVoted  bool           `json:"hasVoted"`
	Inventory []PowerCard    `json:"inventory"`
	Targeting *Targeting     `json:"targeting,omitempty"`
	Shuffle   *ShuffleEffect `json:"shuffle,omitempty"`

	// CopyTargetID and CopyTargetName are the private reminder of whose vote
	// the local participant copies.
	CopyTargetID   string `json:"copyTargetId,omitempty"`
	CopyTargetName string `json:"copyTargetName,omitempty"`

	QuickDraw QuickDrawView `json:"quickDraw"`

	Count          int               `json:"count"`
	Tickets        []protocol.Ticket `json:"tickets"`
	ActiveTicketID string            `json:"activeTicketId,omitempty"`

	// Results, CopyReveals and Stats are only set once cards are revealed.
	Results     map[string]string `json:"results,omitempty"`
	CopyReveals []CopyReveal      `json:"copyReveals,omitempty"`
	Stats       *VotingStats      `json:"stats,omitempty"`

	Issues     []protocol.Ticket `json:"issues"`
	IssueError string            `json:"issueError,omitempty"`
}

func (c *Client) State() RoomState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := RoomState{
		RoomID:         c.roomID,
		SelfID:         c.selfID,
		CreatorID:      c.creatorID,
		GameState:      c.game,
		Vote:           c.vote,
		HasVoted:       c.hasVoted,
		Inventory:      append([]PowerCard(nil), c.inventories[c.roomID]...),
		QuickDraw:      c.quick.view(),
		Count:          c.counter.get(),
		Tickets:        c.tickets.list(),
		ActiveTicketID: c.tickets.activeID(),
		Issues:         append([]protocol.Ticket(nil), c.issueList...),
		IssueError:     c.issueErr,
	}
	if c.targeting != nil {
		t := *c.targeting
		s.Targeting = &t
	}
	if c.shuffle != nil {
		sh := *c.shuffle
		sh.CardOrder = append([]int(nil), c.shuffle.CardOrder...)
		s.Shuffle = &sh
	}
	if target, ok := c.copies[c.selfID]; ok {
		s.CopyTargetID = target
		s.CopyTargetName = c.nameLocked(target)
	}

	for _, m := range c.members {
		v := ParticipantView{
			ID:          m.ParticipantID,
			Name:        c.nameLocked(m.ParticipantID),
			HasVoted:    m.HasVoted,
			Cards:       append([]protocol.CardType(nil), m.AvailableCards...),
			IsCreator:   m.ParticipantID == c.creatorID,
			IsSelf:      m.ParticipantID == c.selfID,
			DoublePower: c.doublePower[m.ParticipantID],
		}
		_, v.Blocked = c.blocked[m.ParticipantID]
		if v.IsSelf {
			v.HasVoted = c.hasVoted
			v.Vote = c.vote
			v.Cards = cardTypes(c.inventories[c.roomID])
		}
		s.Participants = append(s.Participants, v)
	}

	if c.game == protocol.GameRevealed {
		round := c.roundLocked()
		results := EffectiveVotes(round)
		weights := make(map[string]int, len(c.doublePower))
		for id, on := range c.doublePower {
			if on {
				weights[id] = 2
			}
		}
		stats := ComputeStats(results, weights)
		s.Stats = &stats
		s.CopyReveals = CopyReveals(round, results)
		s.Results = make(map[string]string, len(results))
		for id, v := range results {
			if v == "" {
				v = NoVote
			}
			s.Results[id] = v
		}
		for i := range s.Participants {
			s.Participants[i].Vote = s.Results[s.Participants[i].ID]
		}
	}
	return s
}

// roundLocked gathers the raw votes of everyone present. The local vote
// comes from the replica, remote votes from presence.
func (c *Client) roundLocked() Round {
	r := Round{
		Votes:   make(map[string]string, len(c.members)+1),
		Blocked: c.blocked,
		Copies:  c.copies,
	}
	self := false
	for _, m := range c.members {
		r.Order = append(r.Order, m.ParticipantID)
		if m.ParticipantID == c.selfID {
			self = true
			continue
		}
		if m.HasVoted {
			r.Votes[m.ParticipantID] = m.Vote
		}
	}
	if !self {
		r.Order = append(r.Order, c.selfID)
	}
	if c.hasVoted {
		r.Votes[c.selfID] = c.vote
	}
	return r
}

// Results returns effective votes once revealed, nil otherwise. Participants
// without a vote map to NoVote.
func (c *Client) Results() map[string]string {
	s := c.State()
	return s.Results
}

func (c *Client) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.notes...)
}

func (c *Client) ActionLog() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Entries()
}

func (c *Client) Inventory() []PowerCard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]PowerCard(nil), c.inventories[c.roomID]...)
}
