package poker

import (
	"slices"
	"time"
)

const (
	QuickDrawDuration = 5 * time.Second
	QuickDrawCards    = 3
)

// Timer is the handle returned by Config.AfterFunc.
type Timer interface {
	Stop() bool
}

type quickDraw struct {
	active bool
	endsAt time.Time
	cards  []string
	picks  map[string]string
	timer  Timer
	gen    uint64
}

type QuickDrawView struct {
	Active bool              `json:"active"`
	EndsAt time.Time         `json:"endsAt,omitempty"`
	Cards  []string          `json:"cards,omitempty"`
	Picks  map[string]string `json:"picks,omitempty"`
}

func (q *quickDraw) stop() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.active = false
}

func (q *quickDraw) offers(card string) bool {
	return slices.Contains(q.cards, card)
}

func (q *quickDraw) view() QuickDrawView {
	if !q.active {
		return QuickDrawView{}
	}
	picks := make(map[string]string, len(q.picks))
	for k, v := range q.picks {
		picks[k] = v
	}
	return QuickDrawView{
		Active: true,
		EndsAt: q.endsAt,
		Cards:  append([]string(nil), q.cards...),
		Picks:  picks,
	}
}

func validQuickDrawCards(cards []string) bool {
	if len(cards) == 0 {
		return false
	}
	for _, c := range cards {
		if !IsCard(c) {
			return false
		}
	}
	return true
}
