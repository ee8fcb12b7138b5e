package poker

import (
	"time"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
)

const defaultSummary = "No summary"

type ticketState struct {
	ticket  protocol.Ticket
	removed bool
}

// ticketBook is the room's ticket list. Every ticket and the selection are
// independent registers; removals are kept as tombstones so a late add
// cannot resurrect a newer removal.
type ticketBook struct {
	order   []string
	entries map[string]*lww[ticketState]
	active  lww[string]
}

func newTicketBook() *ticketBook {
	return &ticketBook{entries: make(map[string]*lww[ticketState])}
}

func (b *ticketBook) entry(id string) *lww[ticketState] {
	e, ok := b.entries[id]
	if !ok {
		e = &lww[ticketState]{}
		b.entries[id] = e
		b.order = append(b.order, id)
	}
	return e
}

func (b *ticketBook) upsert(t protocol.Ticket, at time.Time, by string) bool {
	if t.ID == "" {
		return false
	}
	if t.Summary == "" {
		t.Summary = defaultSummary
	}
	return b.entry(t.ID).set(ticketState{ticket: t}, at, by)
}

func (b *ticketBook) remove(id string, at time.Time, by string) bool {
	if id == "" {
		return false
	}
	e := b.entry(id)
	return e.set(ticketState{ticket: e.value.ticket, removed: true}, at, by)
}

func (b *ticketBook) selectTicket(id string, at time.Time, by string) bool {
	return b.active.set(id, at, by)
}

func (b *ticketBook) get(id string) (protocol.Ticket, bool) {
	e, ok := b.entries[id]
	if !ok || e.value.removed {
		return protocol.Ticket{}, false
	}
	return e.value.ticket, true
}

func (b *ticketBook) list() []protocol.Ticket {
	out := make([]protocol.Ticket, 0, len(b.order))
	for _, id := range b.order {
		if t, ok := b.get(id); ok {
			out = append(out, t)
		}
	}
	return out
}

// fill copies every entry into s with the stamp of its last write,
// tombstones included, so a receiver can merge them register by register.
func (b *ticketBook) fill(s *protocol.StateSync) {
	s.Tickets = b.list()
	s.TicketStamps = make(map[string]protocol.Stamp, len(b.order))
	for _, id := range b.order {
		e := b.entries[id]
		if e.value.removed {
			s.RemovedTickets = append(s.RemovedTickets, id)
		}
		s.TicketStamps[id] = e.stamp()
	}
	s.ActiveTicketID = b.active.get()
	s.ActiveStamp = b.active.stamp()
}

func (b *ticketBook) merge(s protocol.StateSync) {
	for _, t := range s.Tickets {
		st := s.TicketStamps[t.ID]
		b.upsert(t, st.At, st.By)
	}
	for _, id := range s.RemovedTickets {
		st := s.TicketStamps[id]
		b.remove(id, st.At, st.By)
	}
	b.selectTicket(s.ActiveTicketID, s.ActiveStamp.At, s.ActiveStamp.By)
}

// activeID returns the selected ticket, or "" if it was removed.
func (b *ticketBook) activeID() string {
	id := b.active.get()
	if _, ok := b.get(id); !ok {
		return ""
	}
	return id
}
