package poker

import (
	"time"

	"github.com/google/uuid"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
)

type PowerCard struct {
	ID        string            `json:"id"`
	Type      protocol.CardType `json:"type"`
	GrantedBy string            `json:"grantedBy"`
	GrantedAt time.Time         `json:"grantedAt"`
}

// Targeting is the local state while a participant picks the target of a
// power card.
type Targeting struct {
	CardID   string            `json:"cardId"`
	CardType protocol.CardType `json:"cardType"`
}

// ShuffleEffect scrambles the local participant's card slots. Slot i shows
// Deck[CardOrder[i]] face down until flipped.
type ShuffleEffect struct {
	By        string `json:"by"`
	CardOrder []int  `json:"cardOrder"`
	Flipped   int    `json:"flipped"`
}

func newPowerCard(t protocol.CardType, grantedBy string, at time.Time) PowerCard {
	return PowerCard{
		ID:        uuid.NewString(),
		Type:      t,
		GrantedBy: grantedBy,
		GrantedAt: at,
	}
}

// starterInventory is what every participant receives on entering a room.
func starterInventory(grantedBy string, at time.Time) []PowerCard {
	inv := make([]PowerCard, 0, len(protocol.CardTypes))
	for _, t := range protocol.CardTypes {
		inv = append(inv, newPowerCard(t, grantedBy, at))
	}
	return inv
}

func cardTypes(inv []PowerCard) []protocol.CardType {
	out := make([]protocol.CardType, len(inv))
	for i, c := range inv {
		out[i] = c.Type
	}
	return out
}

func findCard(inv []PowerCard, t protocol.CardType) (PowerCard, bool) {
	for _, c := range inv {
		if c.Type == t {
			return c, true
		}
	}
	return PowerCard{}, false
}

// takeCard removes exactly one card, the one with the given id.
func takeCard(inv []PowerCard, id string) ([]PowerCard, PowerCard, bool) {
	for i, c := range inv {
		if c.ID == id {
			out := make([]PowerCard, 0, len(inv)-1)
			out = append(out, inv[:i]...)
			out = append(out, inv[i+1:]...)
			return out, c, true
		}
	}
	return inv, PowerCard{}, false
}

func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range order {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
