package protocol

import "time"

type EventType string

const (
	TypeStateSync        EventType = "state_sync"
	TypeCounterIncrement EventType = "button_click_increment"
	TypeCounterReset     EventType = "button_click_reset"
	TypeRevealCards      EventType = "reveal_cards"
	TypeResetVoting      EventType = "reset_voting"
	TypeTicketAdd        EventType = "ticket_add"
	TypeTicketRemove     EventType = "ticket_remove"
	TypeTicketEdit       EventType = "ticket_edit"
	TypeTicketSelect     EventType = "ticket_select"
	TypePoke             EventType = "poke"
	TypeGrantSpecialCard EventType = "grant_special_card"
	TypeBlockPlayer      EventType = "block_player"
	TypeCopyVote         EventType = "copy_vote"
	TypeShufflePlayer    EventType = "shuffle_player"
	TypeRoleClaim        EventType = "role_claim"
	TypeQuickDrawStart   EventType = "quick_draw_start"
	TypeQuickDrawVote    EventType = "quick_draw_vote"
)

// EventTypes lists every event the room protocol understands.
var EventTypes = []EventType{
	TypeStateSync,
	TypeCounterIncrement,
	TypeCounterReset,
	TypeRevealCards,
	TypeResetVoting,
	TypeTicketAdd,
	TypeTicketRemove,
	TypeTicketEdit,
	TypeTicketSelect,
	TypePoke,
	TypeGrantSpecialCard,
	TypeBlockPlayer,
	TypeCopyVote,
	TypeShufflePlayer,
	TypeRoleClaim,
	TypeQuickDrawStart,
	TypeQuickDrawVote,
}

type GameState string

const (
	GameVoting    GameState = "VOTING"
	GameRevealed  GameState = "REVEALED"
	GameQuickDraw GameState = "QUICK_DRAW"
)

type CardType string

const (
	CardBlock   CardType = "BLOCK"
	CardCopy    CardType = "COPY"
	CardShuffle CardType = "SHUFFLE"
)

var CardTypes = []CardType{CardBlock, CardCopy, CardShuffle}

func (t CardType) Valid() bool {
	switch t {
	case CardBlock, CardCopy, CardShuffle:
		return true
	}
	return false
}

type Ticket struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Link    string `json:"link,omitempty"`
}

// Event is a room broadcast. The set of implementations is closed; Decode
// and every consumer switch over exactly the types below.
type Event interface {
	Type() EventType
	isEvent()
}

// Stamp identifies the write that produced a replicated value. A zero stamp
// only fills values the receiver has never written.
type Stamp struct {
	At time.Time `json:"at"`
	By string    `json:"by,omitempty"`
}

// StateSync is the sender's full view of the room. Counter, selection and
// tickets carry the stamps of the writes that produced them, so applying a
// sync merges rather than overwrites.
type StateSync struct {
	Count          int              `json:"count"`
	CountStamp     Stamp            `json:"countStamp"`
	CreatorID      string           `json:"creatorId"`
	RoleEpoch      uint64           `json:"roleEpoch"`
	ActiveUsers    []string         `json:"activeUsers"`
	Tickets        []Ticket         `json:"tickets"`
	RemovedTickets []string         `json:"removedTickets,omitempty"`
	TicketStamps   map[string]Stamp `json:"ticketStamps,omitempty"`
	ActiveTicketID string           `json:"activeTicketId,omitempty"`
	ActiveStamp    Stamp            `json:"activeTicketStamp"`
	GameState      GameState        `json:"gameState,omitempty"`
	QuickDraw      *QuickDrawSync   `json:"quickDraw,omitempty"`
}

type QuickDrawSync struct {
	EndsAt time.Time         `json:"endsAt"`
	Cards  []string          `json:"cards"`
	Picks  map[string]string `json:"picks,omitempty"`
}

type CounterIncrement struct {
	Count int `json:"count"`
}

type CounterReset struct {
	Count int `json:"count"`
}

type RevealCards struct{}

type ResetVoting struct{}

type TicketAdd struct {
	Ticket Ticket `json:"ticket"`
}

type TicketRemove struct {
	TicketID string `json:"ticketId"`
}

type TicketEdit struct {
	Ticket Ticket `json:"ticket"`
}

type TicketSelect struct {
	TicketID string `json:"ticketId"`
}

type Poke struct {
	PokeID     string `json:"pokeId"`
	TargetID   string `json:"targetId"`
	TargetName string `json:"targetName,omitempty"`
}

type GrantSpecialCard struct {
	TargetID string   `json:"targetId"`
	Card     CardType `json:"card"`
}

type BlockPlayer struct {
	TargetID   string `json:"targetId"`
	TargetName string `json:"targetName,omitempty"`
}

type CopyVote struct {
	TargetID   string `json:"targetId"`
	TargetName string `json:"targetName,omitempty"`
}

type ShufflePlayer struct {
	TargetID  string `json:"targetId"`
	CardOrder []int  `json:"cardOrder"`
}

type RoleClaim struct {
	ClaimantID string `json:"claimantId"`
	Epoch      uint64 `json:"epoch"`
}

type QuickDrawStart struct {
	EndsAt time.Time `json:"endsAt"`
	Cards  []string  `json:"cards"`
}

type QuickDrawVote struct {
	Vote string `json:"vote"`
}

func (StateSync) Type() EventType        { return TypeStateSync }
func (CounterIncrement) Type() EventType { return TypeCounterIncrement }
func (CounterReset) Type() EventType     { return TypeCounterReset }
func (RevealCards) Type() EventType      { return TypeRevealCards }
func (ResetVoting) Type() EventType      { return TypeResetVoting }
func (TicketAdd) Type() EventType        { return TypeTicketAdd }
func (TicketRemove) Type() EventType     { return TypeTicketRemove }
func (TicketEdit) Type() EventType       { return TypeTicketEdit }
func (TicketSelect) Type() EventType     { return TypeTicketSelect }
func (Poke) Type() EventType             { return TypePoke }
func (GrantSpecialCard) Type() EventType { return TypeGrantSpecialCard }
func (BlockPlayer) Type() EventType      { return TypeBlockPlayer }
func (CopyVote) Type() EventType         { return TypeCopyVote }
func (ShufflePlayer) Type() EventType    { return TypeShufflePlayer }
func (RoleClaim) Type() EventType        { return TypeRoleClaim }
func (QuickDrawStart) Type() EventType   { return TypeQuickDrawStart }
func (QuickDrawVote) Type() EventType    { return TypeQuickDrawVote }

func (StateSync) isEvent()        {}
func (CounterIncrement) isEvent() {}
func (CounterReset) isEvent()     {}
func (RevealCards) isEvent()      {}
func (ResetVoting) isEvent()      {}
func (TicketAdd) isEvent()        {}
func (TicketRemove) isEvent()     {}
func (TicketEdit) isEvent()       {}
func (TicketSelect) isEvent()     {}
func (Poke) isEvent()             {}
func (GrantSpecialCard) isEvent() {}
func (BlockPlayer) isEvent()      {}
func (CopyVote) isEvent()         {}
func (ShufflePlayer) isEvent()    {}
func (RoleClaim) isEvent()        {}
func (QuickDrawStart) isEvent()   {}
func (QuickDrawVote) isEvent()    {}
