package poker

import (
	"time"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
)

// lww is a last-writer-wins register. Writes are ordered by timestamp, then
// by writer id so that replicas agree on equal timestamps.
type lww[T any] struct {
	value T
	at    time.Time
	by    string
}

func (r *lww[T]) set(v T, at time.Time, by string) bool {
	if !r.at.IsZero() {
		if at.Before(r.at) || (at.Equal(r.at) && by <= r.by) {
			return false
		}
	}
	r.value, r.at, r.by = v, at, by
	return true
}

func (r *lww[T]) get() T {
	return r.value
}

func (r *lww[T]) stamp() protocol.Stamp {
	return protocol.Stamp{At: r.at, By: r.by}
}
