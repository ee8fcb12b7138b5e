package poker

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/shared"
)

// run executes fn under the lock and flushes what it produced. Errors from
// fn are precondition failures and nothing is emitted.
func (c *Client) run(ctx context.Context, fn func(out *outbox) error) error {
	var out outbox
	c.mu.Lock()
	err := fn(&out)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.flush(ctx, out)
	return nil
}

func (c *Client) canVoteLocked() error {
	if err := c.requireRoomLocked(); err != nil {
		return err
	}
	if c.game != protocol.GameVoting {
		return ErrNotVoting
	}
	if _, blocked := c.blocked[c.selfID]; blocked {
		return ErrBlocked
	}
	return nil
}

func (c *Client) castLocked(out *outbox, value string) {
	c.vote = value
	c.hasVoted = true
	c.logLocked(LogVote, c.selfID, c.nameLocked(c.selfID)+" voted")
	out.track = true
}

// CastVote records the local participant's estimate and publishes it.
func (c *Client) CastVote(ctx context.Context, value string) error {
	return c.run(ctx, func(out *outbox) error {
		if err := c.canVoteLocked(); err != nil {
			return err
		}
		if c.shuffle != nil {
			return ErrShuffled
		}
		if !IsCard(value) {
			return ErrInvalidCard
		}
		c.castLocked(out, value)
		return nil
	})
}

// FlipCard turns over a shuffled card slot, learning its value and voting
// with it.
func (c *Client) FlipCard(ctx context.Context, slot int) (string, error) {
	var value string
	err := c.run(ctx, func(out *outbox) error {
		if err := c.canVoteLocked(); err != nil {
			return err
		}
		if c.shuffle == nil {
			return ErrNotShuffled
		}
		if c.shuffle.Flipped >= 0 {
			return ErrAlreadyFlipped
		}
		if slot < 0 || slot >= len(c.shuffle.CardOrder) {
			return ErrInvalidSlot
		}
		value = Deck[c.shuffle.CardOrder[slot]]
		c.shuffle.Flipped = slot
		c.castLocked(out, value)
		return nil
	})
	return value, err
}

func (c *Client) Reveal(ctx context.Context) error {
	return c.run(ctx, func(out *outbox) error {
		if err := c.requireCreatorLocked(); err != nil {
			return err
		}
		if c.revealLocked(c.selfID) {
			out.emit(protocol.RevealCards{})
		}
		return nil
	})
}

func (c *Client) ResetVoting(ctx context.Context) error {
	return c.run(ctx, func(out *outbox) error {
		if err := c.requireCreatorLocked(); err != nil {
			return err
		}
		c.resetVotingLocked(c.selfID)
		out.emit(protocol.ResetVoting{})
		out.track = true
		return nil
	})
}

// BeginTargeting starts choosing a target for a power card of type t.
func (c *Client) BeginTargeting(t protocol.CardType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireRoomLocked(); err != nil {
		return err
	}
	if !t.Valid() {
		return ErrUnknownCardType
	}
	if c.targeting != nil {
		return ErrTargetingActive
	}
	if c.game != protocol.GameVoting {
		return ErrNotVoting
	}
	card, ok := findCard(c.inventories[c.roomID], t)
	if !ok {
		return ErrNoCard
	}
	c.targeting = &Targeting{CardID: card.ID, CardType: t}
	return nil
}

func (c *Client) CancelTargeting() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.targeting == nil {
		return ErrNoTargeting
	}
	c.targeting = nil
	return nil
}

// SelectTarget consumes the card being targeted and plays it on targetID.
func (c *Client) SelectTarget(ctx context.Context, targetID string) error {
	return c.run(ctx, func(out *outbox) error {
		if c.targeting == nil {
			return ErrNoTargeting
		}
		if targetID == c.selfID || !c.tracker.Known(targetID) {
			return ErrInvalidTarget
		}
		if c.game != protocol.GameVoting {
			c.targeting = nil
			return ErrNotVoting
		}

		inv, card, ok := takeCard(c.inventories[c.roomID], c.targeting.CardID)
		c.targeting = nil
		if !ok {
			return ErrNoCard
		}
		c.inventories[c.roomID] = inv

		self := c.nameLocked(c.selfID)
		target := c.nameLocked(targetID)
		switch card.Type {
		case protocol.CardBlock:
			c.blocked[targetID] = c.selfID
			c.logLocked(LogBlock, c.selfID, fmt.Sprintf("%s blocked %s", self, target))
			out.emit(protocol.BlockPlayer{TargetID: targetID, TargetName: target})
		case protocol.CardCopy:
			c.copies[c.selfID] = targetID
			c.logLocked(LogCopy, c.selfID, self+" played a copy card")
			out.emit(protocol.CopyVote{TargetID: targetID, TargetName: target})
		case protocol.CardShuffle:
			order := c.rnd.Perm(len(Deck))
			c.logLocked(LogShuffle, c.selfID, fmt.Sprintf("%s shuffled %s's cards", self, target))
			out.emit(protocol.ShufflePlayer{TargetID: targetID, CardOrder: order})
		}
		out.track = true
		return nil
	})
}

// GrantCard gives targetID one power card of type t. Only the creator may
// grant cards.
func (c *Client) GrantCard(ctx context.Context, targetID string, t protocol.CardType) error {
	return c.run(ctx, func(out *outbox) error {
		if err := c.requireCreatorLocked(); err != nil {
			return err
		}
		if !t.Valid() {
			return ErrUnknownCardType
		}
		if targetID != c.selfID && !c.tracker.Known(targetID) {
			return ErrInvalidTarget
		}

		c.logLocked(LogInfo, c.selfID, fmt.Sprintf("%s granted a %s card to %s", c.nameLocked(c.selfID), t, c.nameLocked(targetID)))
		if targetID == c.selfID {
			c.inventories[c.roomID] = append(c.inventories[c.roomID], newPowerCard(t, c.selfID, c.now()))
			out.track = true
			return nil
		}
		out.emit(protocol.GrantSpecialCard{TargetID: targetID, Card: t})
		return nil
	})
}

func (c *Client) Poke(ctx context.Context, targetID string) error {
	return c.run(ctx, func(out *outbox) error {
		if err := c.requireRoomLocked(); err != nil {
			return err
		}
		if targetID == c.selfID || !c.tracker.Known(targetID) {
			return ErrInvalidTarget
		}
		target := c.nameLocked(targetID)
		c.logLocked(LogPoke, c.selfID, fmt.Sprintf("%s poked %s", c.nameLocked(c.selfID), target))
		out.emit(protocol.Poke{PokeID: shared.NewID("poke_"), TargetID: targetID, TargetName: target})
		return nil
	})
}

// StartQuickDraw opens a timed mini round offering a few random cards. When
// it ends the cards are revealed and everyone who picked earns double power
// for the next round.
func (c *Client) StartQuickDraw(ctx context.Context) error {
	return c.run(ctx, func(out *outbox) error {
		if err := c.requireCreatorLocked(); err != nil {
			return err
		}
		if c.game != protocol.GameVoting {
			return ErrNotVoting
		}

		idx := c.rnd.Perm(len(Deck))[:QuickDrawCards]
		slices.Sort(idx)
		cards := make([]string, len(idx))
		for i, j := range idx {
			cards[i] = Deck[j]
		}
		endsAt := c.now().UTC().Add(c.quickDrawDuration)

		c.startQuickDrawLocked(endsAt, cards, c.selfID)
		out.emit(protocol.QuickDrawStart{EndsAt: endsAt, Cards: cards})
		return nil
	})
}

func (c *Client) QuickDrawPick(ctx context.Context, card string) error {
	return c.run(ctx, func(out *outbox) error {
		if err := c.requireRoomLocked(); err != nil {
			return err
		}
		if c.game != protocol.GameQuickDraw {
			return ErrNoQuickDraw
		}
		if _, blocked := c.blocked[c.selfID]; blocked {
			return ErrBlocked
		}
		if !c.quick.offers(card) {
			return ErrInvalidCard
		}
		if _, done := c.quick.picks[c.selfID]; done {
			return ErrAlreadyPicked
		}
		c.quick.picks[c.selfID] = card
		c.castLocked(out, card)
		out.emit(protocol.QuickDrawVote{Vote: card})
		return nil
	})
}

// Increment bumps the shared counter and returns the new value.
func (c *Client) Increment(ctx context.Context) (int, error) {
	var n int
	err := c.run(ctx, func(out *outbox) error {
		if err := c.requireRoomLocked(); err != nil {
			return err
		}
		n = c.counter.get() + 1
		at := c.stamp()
		c.counter.set(n, at, c.selfID)
		out.emitAt(protocol.CounterIncrement{Count: n}, at)
		return nil
	})
	return n, err
}

func (c *Client) ResetCounter(ctx context.Context) error {
	return c.run(ctx, func(out *outbox) error {
		if err := c.requireRoomLocked(); err != nil {
			return err
		}
		at := c.stamp()
		c.counter.set(0, at, c.selfID)
		out.emitAt(protocol.CounterReset{Count: 0}, at)
		return nil
	})
}

func normalizeTicket(t protocol.Ticket) protocol.Ticket {
	t.Key = strings.TrimSpace(t.Key)
	t.Summary = strings.TrimSpace(t.Summary)
	t.Link = strings.TrimSpace(t.Link)
	if t.Summary == "" {
		t.Summary = defaultSummary
	}
	return t
}

func (c *Client) AddTicket(ctx context.Context, t protocol.Ticket) (protocol.Ticket, error) {
	t = normalizeTicket(t)
	if t.ID == "" {
		t.ID = shared.NewID("tkt_")
	}
	err := c.run(ctx, func(out *outbox) error {
		if err := c.requireRoomLocked(); err != nil {
			return err
		}
		at := c.stamp()
		c.tickets.upsert(t, at, c.selfID)
		c.logLocked(LogTicket, c.selfID, fmt.Sprintf("%s added ticket %s", c.nameLocked(c.selfID), t.Key))
		out.emitAt(protocol.TicketAdd{Ticket: t}, at)
		return nil
	})
	return t, err
}

func (c *Client) EditTicket(ctx context.Context, t protocol.Ticket) error {
	t = normalizeTicket(t)
	return c.run(ctx, func(out *outbox) error {
		if err := c.requireRoomLocked(); err != nil {
			return err
		}
		if _, ok := c.tickets.get(t.ID); !ok {
			return ErrUnknownTicket
		}
		at := c.stamp()
		c.tickets.upsert(t, at, c.selfID)
		c.logLocked(LogTicket, c.selfID, fmt.Sprintf("%s edited ticket %s", c.nameLocked(c.selfID), t.Key))
		out.emitAt(protocol.TicketEdit{Ticket: t}, at)
		return nil
	})
}

func (c *Client) RemoveTicket(ctx context.Context, id string) error {
	return c.run(ctx, func(out *outbox) error {
		if err := c.requireRoomLocked(); err != nil {
			return err
		}
		t, ok := c.tickets.get(id)
		if !ok {
			return ErrUnknownTicket
		}
		at := c.stamp()
		c.tickets.remove(id, at, c.selfID)
		c.logLocked(LogTicket, c.selfID, fmt.Sprintf("%s removed ticket %s", c.nameLocked(c.selfID), t.Key))
		out.emitAt(protocol.TicketRemove{TicketID: id}, at)
		return nil
	})
}

// SelectTicket marks id as the ticket being estimated; "" clears the
// selection.
func (c *Client) SelectTicket(ctx context.Context, id string) error {
	return c.run(ctx, func(out *outbox) error {
		if err := c.requireRoomLocked(); err != nil {
			return err
		}
		if id != "" {
			if _, ok := c.tickets.get(id); !ok {
				return ErrUnknownTicket
			}
		}
		at := c.stamp()
		c.tickets.selectTicket(id, at, c.selfID)
		out.emitAt(protocol.TicketSelect{TicketID: id}, at)
		return nil
	})
}

// SetDisplayName changes the local name; an empty name clears it.
func (c *Client) SetDisplayName(ctx context.Context, name string) error {
	return c.run(ctx, func(out *outbox) error {
		c.selfName = strings.TrimSpace(name)
		out.track = c.roomID != ""
		return nil
	})
}

// FetchIssues replaces the local issue list with the result of query. On
// failure the previous list is kept and an error notification is raised.
func (c *Client) FetchIssues(ctx context.Context, query string) ([]protocol.Ticket, error) {
	if c.issues == nil {
		return nil, ErrNoTracker
	}

	list, err := c.issues.SearchIssues(ctx, query)

	c.mu.Lock()
	if err != nil {
		c.issueErr = err.Error()
		n := c.noteLocked(SeverityError, "Failed to fetch issues: "+err.Error())
		c.mu.Unlock()
		c.deliver(n)
		c.logger.Warn("issue search failed", "error", err)
		return nil, err
	}
	c.issueErr = ""
	c.issueList = append([]protocol.Ticket(nil), list...)
	out := append([]protocol.Ticket(nil), c.issueList...)
	c.mu.Unlock()
	return out, nil
}

func (c *Client) ClearActionLog() {
	c.mu.Lock()
	c.log.Clear()
	c.mu.Unlock()
}
