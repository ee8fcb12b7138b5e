package poker

import (
	"sort"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/presence"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/protocol"
)

// acceptClaimLocked applies a creator claim. A claim wins with a higher
// epoch, or with an equal epoch and a lower claimant id. Until the first
// claim is seen the heuristic creator is replaced unconditionally.
func (c *Client) acceptClaimLocked(id string, epoch uint64) bool {
	if id == "" {
		return false
	}
	if c.roleKnown {
		if epoch < c.roleEpoch || (epoch == c.roleEpoch && id >= c.creatorID) {
			return false
		}
	}
	c.creatorID = id
	c.roleEpoch = epoch
	c.roleKnown = true
	return true
}

// resolveRoleLocked updates the creator after a membership change and
// returns the claim to broadcast, if any.
func (c *Client) resolveRoleLocked(change presence.Change) *protocol.RoleClaim {
	if len(c.members) == 1 && c.members[0].ParticipantID == c.selfID {
		if c.roleKnown && c.creatorID == c.selfID {
			return nil
		}
		epoch := c.roleEpoch + 1
		c.acceptClaimLocked(c.selfID, epoch)
		c.logLocked(LogInfo, c.selfID, "You are the room creator")
		return &protocol.RoleClaim{ClaimantID: c.selfID, Epoch: epoch}
	}

	if c.roleKnown {
		for _, id := range change.Left {
			if id == c.creatorID {
				return c.reelectLocked()
			}
		}
		return nil
	}

	if len(c.members) > 0 {
		c.creatorID = c.members[0].ParticipantID
	}
	return nil
}

// reelectLocked hands the creator role to the lowest remaining participant
// id. Every replica reaches the same result; the winner also announces it.
func (c *Client) reelectLocked() *protocol.RoleClaim {
	if len(c.members) == 0 {
		c.creatorID = ""
		return nil
	}

	ids := make([]string, len(c.members))
	for i, m := range c.members {
		ids[i] = m.ParticipantID
	}
	sort.Strings(ids)

	next := ids[0]
	epoch := c.roleEpoch + 1
	c.creatorID = next
	c.roleEpoch = epoch
	c.logLocked(LogInfo, next, c.nameLocked(next)+" is the new room creator")

	if next == c.selfID {
		return &protocol.RoleClaim{ClaimantID: next, Epoch: epoch}
	}
	return nil
}

func (c *Client) IsCreator() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID != "" && c.creatorID == c.selfID
}

func (c *Client) CreatorID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creatorID
}
