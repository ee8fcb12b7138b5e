package poker

// Round is the input to effective vote resolution.
type Round struct {
	// Order lists the participants present at reveal.
	Order []string
	// Votes holds raw votes; a missing or empty entry means no vote.
	Votes map[string]string
	// Blocked maps a blocked participant to whoever blocked them.
	Blocked map[string]string
	// Copies maps a copier to the participant whose vote they copy.
	Copies map[string]string
}

type CopyReveal struct {
	CopierID string `json:"copierId"`
	TargetID string `json:"targetId"`
	Vote     string `json:"vote"`
}

// EffectiveVotes resolves every participant's vote at reveal. A blocked
// participant gets the deck value nearest the mean of the raw votes of
// everyone not blocked, or the lowest card when there are none. Blocking
// takes precedence over copying. A copier gets the effective vote of its
// target, following chains of copiers; a cycle or a missing target yields no
// vote.
func EffectiveVotes(r Round) map[string]string {
	present := make(map[string]bool, len(r.Order))
	for _, id := range r.Order {
		present[id] = true
	}

	avg := ""
	if len(r.Blocked) > 0 {
		avg = blockedAverage(r)
	}

	out := make(map[string]string, len(r.Order))
	for _, id := range r.Order {
		out[id] = r.resolve(id, present, avg)
	}
	return out
}

func (r Round) resolve(id string, present map[string]bool, avg string) string {
	seen := make(map[string]bool)
	cur := id
	for {
		if _, blocked := r.Blocked[cur]; blocked {
			return avg
		}
		target, copying := r.Copies[cur]
		if !copying {
			return r.Votes[cur]
		}
		if seen[cur] {
			return ""
		}
		seen[cur] = true
		if !present[target] {
			return ""
		}
		cur = target
	}
}

func blockedAverage(r Round) string {
	var sum float64
	var n int
	for _, id := range r.Order {
		if _, blocked := r.Blocked[id]; blocked {
			continue
		}
		if v, ok := cardValue(r.Votes[id]); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return LowestCard()
	}
	return NearestCard(sum / float64(n))
}

// CopyReveals lists each copy relation with the vote it produced.
func CopyReveals(r Round, effective map[string]string) []CopyReveal {
	var out []CopyReveal
	for _, id := range r.Order {
		target, ok := r.Copies[id]
		if !ok {
			continue
		}
		out = append(out, CopyReveal{CopierID: id, TargetID: target, Vote: effective[id]})
	}
	return out
}
