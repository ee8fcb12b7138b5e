package poker

import "errors"

var (
	ErrNotJoined       = errors.New("not in a room")
	ErrNotVoting       = errors.New("voting is closed")
	ErrBlocked         = errors.New("participant is blocked")
	ErrInvalidCard     = errors.New("not a card of the deck")
	ErrShuffled        = errors.New("cards are shuffled, flip a card to vote")
	ErrNotShuffled     = errors.New("cards are not shuffled")
	ErrAlreadyFlipped  = errors.New("a shuffled card was already flipped")
	ErrInvalidSlot     = errors.New("no such card slot")
	ErrNotCreator      = errors.New("only the room creator can do that")
	ErrUnknownCardType = errors.New("unknown power card type")
	ErrNoCard          = errors.New("power card not in inventory")
	ErrTargetingActive = errors.New("a power card is already being targeted")
	ErrNoTargeting     = errors.New("no power card is being targeted")
	ErrInvalidTarget   = errors.New("invalid target participant")
	ErrUnknownTicket   = errors.New("unknown ticket")
	ErrNoQuickDraw     = errors.New("no quick draw in progress")
	ErrAlreadyPicked   = errors.New("quick draw card already picked")
	ErrNoTracker       = errors.New("issue tracker not configured")
)
