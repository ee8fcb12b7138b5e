package protocol

import (
	"sort"
	"time"
)

// Presence is the attribute set a participant publishes while connected to a
// room.
type Presence struct {
	ParticipantID  string     `json:"participantId"`
	DisplayName    string     `json:"displayName,omitempty"`
	HasVoted       bool       `json:"hasVoted"`
	Vote           string     `json:"vote,omitempty"`
	AvailableCards []CardType `json:"availableCards,omitempty"`
	JoinedAt       time.Time  `json:"joinedAt"`
	SeenAt         time.Time  `json:"seenAt"`
}

// Snapshot is the full membership of a room. Left carries ids the transport
// believes departed; it is a hint and may name participants that are still
// listed in Members.
type Snapshot struct {
	RoomID  string     `json:"roomId"`
	Members []Presence `json:"members"`
	Left    []string   `json:"left,omitempty"`
}

// SortMembers orders members by arrival, then by id.
func SortMembers(members []Presence) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ParticipantID < b.ParticipantID
	})
}
