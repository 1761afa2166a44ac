package models

import "time"

// IsOpen decides whether new entries may be accepted at now.
//
// Closed and cancelled giveaways never accept entries. With an end date the
// giveaway is open until that instant; otherwise it counts RemainingS down
// from StartAt. Only active giveaways are open in either mode.
func (g *Giveaway) IsOpen(now time.Time) bool {
	if g.Status != GiveawayStatusActive {
		return false
	}

	if g.EndAt != nil {
		return now.Before(*g.EndAt)
	}

	deadline, ok := g.Deadline()
	if !ok {
		return false
	}
	return now.Before(deadline)
}

// Deadline returns the instant entries stop being accepted. ok is false for a
// countdown giveaway that has not been started or has nothing left.
func (g *Giveaway) Deadline() (deadline time.Time, ok bool) {
	if g.EndAt != nil {
		return *g.EndAt, true
	}
	if g.StartAt == nil || g.RemainingS == nil || *g.RemainingS <= 0 {
		return time.Time{}, false
	}
	return g.StartAt.Add(time.Duration(*g.RemainingS) * time.Second), true
}

// SecondsLeft returns the whole seconds until the deadline, never negative.
// A paused countdown reports its frozen remainder.
func (g *Giveaway) SecondsLeft(now time.Time) int64 {
	if g.Status == GiveawayStatusPaused && g.IsDurationMode() {
		if g.RemainingS == nil || *g.RemainingS < 0 {
			return 0
		}
		return *g.RemainingS
	}

	deadline, ok := g.Deadline()
	if !ok || !now.Before(deadline) {
		return 0
	}
	return int64(deadline.Sub(now) / time.Second)
}
