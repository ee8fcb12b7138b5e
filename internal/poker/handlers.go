package poker

import (
	"context"
	"fmt"
	"time"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/channel"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
)

func (c *Client) handleMessage(msg channel.Message) {
	c.mu.Lock()
	if c.roomID == "" || msg.Envelope.SenderID == c.selfID {
		c.mu.Unlock()
		return
	}
	out := c.applyLocked(msg.Envelope, msg.Event)
	c.mu.Unlock()

	c.logger.Debug("applied event", "type", msg.Envelope.Type, "sender_id", msg.Envelope.SenderID)
	c.flush(context.Background(), out)
}

func (c *Client) applyLocked(env protocol.Envelope, ev protocol.Event) outbox {
	var out outbox
	sender := env.SenderID
	if env.SenderName != "" {
		c.names[sender] = env.SenderName
	}
	at := env.Timestamp
	if at.IsZero() {
		at = c.now().UTC()
	}
	name := c.nameLocked(sender)

	switch e := ev.(type) {
	case protocol.StateSync:
		c.applySyncLocked(e, sender)

	case protocol.CounterIncrement:
		if c.counter.set(e.Count, at, sender) {
			out.notes = append(out.notes, c.noteLocked(SeverityInfo, fmt.Sprintf("%s incremented count to %d", name, e.Count)))
		}

	case protocol.CounterReset:
		if c.counter.set(0, at, sender) {
			out.notes = append(out.notes, c.noteLocked(SeverityInfo, name+" reset the count"))
		}

	case protocol.RevealCards:
		c.revealLocked(sender)

	case protocol.ResetVoting:
		c.resetVotingLocked(sender)
		out.track = true

	case protocol.TicketAdd:
		if c.tickets.upsert(e.Ticket, at, sender) {
			c.logLocked(LogTicket, sender, fmt.Sprintf("%s added ticket %s", name, e.Ticket.Key))
		}

	case protocol.TicketRemove:
		t, _ := c.tickets.get(e.TicketID)
		if c.tickets.remove(e.TicketID, at, sender) && t.ID != "" {
			c.logLocked(LogTicket, sender, fmt.Sprintf("%s removed ticket %s", name, t.Key))
		}

	case protocol.TicketEdit:
		if c.tickets.upsert(e.Ticket, at, sender) {
			c.logLocked(LogTicket, sender, fmt.Sprintf("%s edited ticket %s", name, e.Ticket.Key))
		}

	case protocol.TicketSelect:
		if c.tickets.selectTicket(e.TicketID, at, sender) {
			if t, ok := c.tickets.get(e.TicketID); ok {
				c.logLocked(LogTicket, sender, fmt.Sprintf("%s is now estimating %s", name, t.Key))
			}
		}

	case protocol.Poke:
		target := c.nameLocked(e.TargetID)
		c.logLocked(LogPoke, sender, fmt.Sprintf("%s poked %s", name, target))
		if e.TargetID == c.selfID {
			out.notes = append(out.notes, c.noteLocked(SeverityInfo, name+" poked you!"))
		}

	case protocol.GrantSpecialCard:
		if !e.Card.Valid() {
			break
		}
		c.logLocked(LogInfo, sender, fmt.Sprintf("%s granted a %s card to %s", name, e.Card, c.nameLocked(e.TargetID)))
		if e.TargetID == c.selfID {
			c.inventories[c.roomID] = append(c.inventories[c.roomID], newPowerCard(e.Card, sender, at))
			out.track = true
			out.notes = append(out.notes, c.noteLocked(SeveritySuccess, fmt.Sprintf("%s granted you a %s card", name, e.Card)))
		}

	case protocol.BlockPlayer:
		c.blocked[e.TargetID] = sender
		c.logLocked(LogBlock, sender, fmt.Sprintf("%s blocked %s", name, c.nameLocked(e.TargetID)))
		if e.TargetID == c.selfID {
			out.notes = append(out.notes, c.noteLocked(SeverityInfo, name+" blocked you, your vote will be the room average"))
		}

	case protocol.CopyVote:
		if e.TargetID == sender {
			break
		}
		c.copies[sender] = e.TargetID
		c.logLocked(LogCopy, sender, name+" played a copy card")

	case protocol.ShufflePlayer:
		c.logLocked(LogShuffle, sender, fmt.Sprintf("%s shuffled %s's cards", name, c.nameLocked(e.TargetID)))
		if e.TargetID == c.selfID && isPermutation(e.CardOrder, len(Deck)) && !c.hasVoted {
			c.shuffle = &ShuffleEffect{By: sender, CardOrder: append([]int(nil), e.CardOrder...), Flipped: -1}
			out.notes = append(out.notes, c.noteLocked(SeverityInfo, name+" shuffled your cards, flip one to vote"))
		}

	case protocol.RoleClaim:
		if c.acceptClaimLocked(e.ClaimantID, e.Epoch) {
			c.logLocked(LogInfo, e.ClaimantID, c.nameLocked(e.ClaimantID)+" is the room creator")
		}

	case protocol.QuickDrawStart:
		c.startQuickDrawLocked(e.EndsAt, e.Cards, sender)

	case protocol.QuickDrawVote:
		if c.game == protocol.GameQuickDraw && c.quick.offers(e.Vote) {
			if _, done := c.quick.picks[sender]; !done {
				c.quick.picks[sender] = e.Vote
			}
		}
	}
	return out
}

// applySyncLocked merges a peer's view. Registers keep whichever write is
// newer, so every member may apply any sync.
func (c *Client) applySyncLocked(s protocol.StateSync, sender string) {
	if c.acceptClaimLocked(s.CreatorID, s.RoleEpoch) {
		c.logLocked(LogInfo, s.CreatorID, c.nameLocked(s.CreatorID)+" is the room creator")
	}
	c.counter.set(s.Count, s.CountStamp.At, s.CountStamp.By)
	c.tickets.merge(s)

	switch s.GameState {
	case protocol.GameRevealed:
		if c.game != protocol.GameRevealed {
			c.revealLocked(sender)
		}
	case protocol.GameQuickDraw:
		q := s.QuickDraw
		if q == nil {
			break
		}
		if c.game == protocol.GameVoting {
			c.startQuickDrawLocked(q.EndsAt, q.Cards, sender)
		}
		if c.game != protocol.GameQuickDraw {
			break
		}
		for id, card := range q.Picks {
			if _, done := c.quick.picks[id]; !done && c.quick.offers(card) {
				c.quick.picks[id] = card
			}
		}
	}
}

// revealLocked moves the room to REVEALED. It reports false if the room was
// already revealed.
func (c *Client) revealLocked(actor string) bool {
	if c.game == protocol.GameRevealed {
		return false
	}
	if c.game == protocol.GameQuickDraw {
		c.finishQuickDrawLocked()
	}
	c.game = protocol.GameRevealed
	c.targeting = nil
	c.logLocked(LogReveal, actor, c.nameLocked(actor)+" revealed the cards")
	return true
}

// resetVotingLocked starts a new round. Inventories are kept; quick draw
// rewards earned last round become active.
func (c *Client) resetVotingLocked(actor string) {
	c.game = protocol.GameVoting
	c.vote = ""
	c.hasVoted = false
	c.targeting = nil
	c.blocked = make(map[string]string)
	c.copies = make(map[string]string)
	c.shuffle = nil
	c.quick.stop()
	c.quick.picks = nil

	c.doublePower = c.pendingDouble
	c.pendingDouble = make(map[string]bool)

	for i := range c.members {
		c.members[i].HasVoted = false
		c.members[i].Vote = ""
	}
	c.logLocked(LogReset, actor, c.nameLocked(actor)+" started a new round")
}

func (c *Client) startQuickDrawLocked(endsAt time.Time, cards []string, actor string) bool {
	if c.game != protocol.GameVoting || !validQuickDrawCards(cards) {
		return false
	}

	c.game = protocol.GameQuickDraw
	c.quick.stop()
	c.quick.gen++
	c.quick.active = true
	c.quick.endsAt = endsAt
	c.quick.cards = append([]string(nil), cards...)
	c.quick.picks = make(map[string]string)

	wait := endsAt.Sub(c.now())
	if wait < 0 {
		wait = 0
	}
	gen := c.quick.gen
	c.quick.timer = c.afterFunc(wait, func() { c.quickDrawExpired(gen) })

	c.logLocked(LogInfo, actor, c.nameLocked(actor)+" started a quick draw")
	return true
}

func (c *Client) quickDrawExpired(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.quick.active || c.quick.gen != gen || c.game != protocol.GameQuickDraw {
		return
	}
	c.finishQuickDrawLocked()
	c.game = protocol.GameRevealed
	c.targeting = nil
	c.logLocked(LogReveal, "", "Quick draw finished, cards revealed")
}

// finishQuickDrawLocked ends the quick draw and grants double power for the
// next round to everyone who picked a card.
func (c *Client) finishQuickDrawLocked() {
	for id := range c.quick.picks {
		c.pendingDouble[id] = true
	}
	c.quick.stop()
}
