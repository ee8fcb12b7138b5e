package poker

import "sort"

type Consensus string

const (
	ConsensusNone         Consensus = ""
	ConsensusPerfect      Consensus = "perfect"
	ConsensusClose        Consensus = "close"
	ConsensusMixed        Consensus = "mixed"
	ConsensusHighVariance Consensus = "high_variance"
)

type VotingStats struct {
	Votes     int       `json:"votes"`
	Average   float64   `json:"average"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Range     float64   `json:"range"`
	Consensus Consensus `json:"consensus"`
	Modes     []string  `json:"modes"`
}

// ComputeStats summarises numeric votes. weights multiplies a participant's
// influence on the average and the modes; missing entries weigh 1.
func ComputeStats(votes map[string]string, weights map[string]int) VotingStats {
	var (
		s        VotingStats
		sum      float64
		total    int
		counts   = make(map[string]int)
		hasValue bool
	)

	for id, vote := range votes {
		v, ok := cardValue(vote)
		if !ok {
			continue
		}
		w := weights[id]
		if w <= 0 {
			w = 1
		}

		s.Votes++
		sum += v * float64(w)
		total += w
		counts[vote] += w

		if !hasValue || v < s.Min {
			s.Min = v
		}
		if !hasValue || v > s.Max {
			s.Max = v
		}
		hasValue = true
	}

	if !hasValue {
		return s
	}

	s.Average = sum / float64(total)
	s.Range = s.Max - s.Min
	s.Consensus = consensusFor(s.Range)

	best := 0
	for _, c := range counts {
		if c > best {
			best = c
		}
	}
	for vote, c := range counts {
		if c == best {
			s.Modes = append(s.Modes, vote)
		}
	}
	sort.Slice(s.Modes, func(i, j int) bool {
		a, _ := cardValue(s.Modes[i])
		b, _ := cardValue(s.Modes[j])
		return a < b
	})
	return s
}

func consensusFor(spread float64) Consensus {
	switch {
	case spread == 0:
		return ConsensusPerfect
	case spread <= 2:
		return ConsensusClose
	case spread <= 5:
		return ConsensusMixed
	default:
		return ConsensusHighVariance
	}
}
