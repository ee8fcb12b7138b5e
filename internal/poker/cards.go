package poker

import (
	"math"
	"slices"
	"strconv"
)

// Deck is the ordered set of estimate values a participant can vote with.
var Deck = []string{"0", "1", "2", "3", "5", "8", "13", "21"}

func IsCard(v string) bool {
	return slices.Contains(Deck, v)
}

func LowestCard() string {
	return Deck[0]
}

func cardValue(v string) (float64, bool) {
	if !IsCard(v) {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NearestCard returns the deck value closest to x. Ties go to the smaller
// card.
func NearestCard(x float64) string {
	best := Deck[0]
	bestDist := math.Inf(1)
	for _, c := range Deck {
		v, _ := cardValue(c)
		if d := math.Abs(v - x); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
