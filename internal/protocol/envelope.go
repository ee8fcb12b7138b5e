package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownEvent = errors.New("unknown event type")
	ErrBadPayload   = errors.New("malformed event payload")
)

// Envelope is the wire form of a broadcast. Sender fields and Timestamp are
// stamped by the channel, never by the event producer.
type Envelope struct {
	Type       EventType       `json:"type"`
	SenderID   string          `json:"senderId"`
	SenderName string          `json:"senderName,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func Encode(ev Event) (Envelope, error) {
	if ev == nil {
		return Envelope{}, fmt.Errorf("encode: %w", ErrUnknownEvent)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", ev.Type(), err)
	}
	return Envelope{Type: ev.Type(), Payload: payload}, nil
}

func Decode(env Envelope) (Event, error) {
	switch env.Type {
	case TypeStateSync:
		return decodeAs[StateSync](env)
	case TypeCounterIncrement:
		return decodeAs[CounterIncrement](env)
	case TypeCounterReset:
		return decodeAs[CounterReset](env)
	case TypeRevealCards:
		return decodeAs[RevealCards](env)
	case TypeResetVoting:
		return decodeAs[ResetVoting](env)
	case TypeTicketAdd:
		return decodeAs[TicketAdd](env)
	case TypeTicketRemove:
		return decodeAs[TicketRemove](env)
	case TypeTicketEdit:
		return decodeAs[TicketEdit](env)
	case TypeTicketSelect:
		return decodeAs[TicketSelect](env)
	case TypePoke:
		return decodeAs[Poke](env)
	case TypeGrantSpecialCard:
		return decodeAs[GrantSpecialCard](env)
	case TypeBlockPlayer:
		return decodeAs[BlockPlayer](env)
	case TypeCopyVote:
		return decodeAs[CopyVote](env)
	case TypeShufflePlayer:
		return decodeAs[ShufflePlayer](env)
	case TypeRoleClaim:
		return decodeAs[RoleClaim](env)
	case TypeQuickDrawStart:
		return decodeAs[QuickDrawStart](env)
	case TypeQuickDrawVote:
		return decodeAs[QuickDrawVote](env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

func decodeAs[T Event](env Envelope) (Event, error) {
	var ev T
	raw := bytes.TrimSpace(env.Payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ev, nil
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadPayload, env.Type, err)
	}
	return ev, nil
}
