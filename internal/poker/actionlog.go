package poker

import (
	"strconv"
	"time"
)

const MaxLogEntries = 100

type LogKind string

const (
	LogJoin    LogKind = "join"
	LogLeave   LogKind = "leave"
	LogVote    LogKind = "vote"
	LogReveal  LogKind = "reveal"
	LogReset   LogKind = "reset"
	LogPoke    LogKind = "poke"
	LogBlock   LogKind = "block"
	LogCopy    LogKind = "copy"
	LogShuffle LogKind = "shuffle"
	LogTicket  LogKind = "ticket"
	LogInfo    LogKind = "info"
)

type LogEntry struct {
	ID        string    `json:"id"`
	Kind      LogKind   `json:"kind"`
	ActorID   string    `json:"actorId,omitempty"`
	ActorName string    `json:"actorName,omitempty"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// ActionLog keeps the most recent room actions, evicting the oldest entry
// once full. It is not safe for concurrent use.
type ActionLog struct {
	entries []LogEntry
	max     int
	seq     int
}

func NewActionLog(max int) *ActionLog {
	if max <= 0 {
		max = MaxLogEntries
	}
	return &ActionLog{max: max}
}

func (l *ActionLog) Add(e LogEntry) LogEntry {
	l.seq++
	e.ID = "log_" + strconv.Itoa(l.seq)
	l.entries = append(l.entries, e)
	if over := len(l.entries) - l.max; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
	return e
}

func (l *ActionLog) Entries() []LogEntry {
	return append([]LogEntry(nil), l.entries...)
}

func (l *ActionLog) Len() int {
	return len(l.entries)
}

func (l *ActionLog) Clear() {
	l.entries = nil
}
