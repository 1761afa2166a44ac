package models

import (
	"errors"
	"time"
)

var (
	ErrInvalidTransition = errors.New("status transition is not allowed")
	ErrInvalidWindow     = errors.New("giveaway needs either an end date or a positive duration")
	ErrInvalidWinners    = errors.New("max winners must be greater than 0")
	ErrLoginRequired     = errors.New("login is required to join this giveaway")
)

// GiveawayStatus represents the lifecycle status of a giveaway
type GiveawayStatus string

const (
	GiveawayStatusDraft     GiveawayStatus = "draft"     // Created, not accepting entries yet
	GiveawayStatusActive    GiveawayStatus = "active"    // Accepting entries while the gate is open
	GiveawayStatusPaused    GiveawayStatus = "paused"    // Countdown frozen by an operator
	GiveawayStatusClosed    GiveawayStatus = "closed"    // Drawn, or closed by an operator
	GiveawayStatusCancelled GiveawayStatus = "cancelled" // Terminal operator override
)

// Valid reports whether s is a known status.
func (s GiveawayStatus) Valid() bool {
	switch s {
	case GiveawayStatusDraft, GiveawayStatusActive, GiveawayStatusPaused,
		GiveawayStatusClosed, GiveawayStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle transition is possible.
func (s GiveawayStatus) Terminal() bool {
	return s == GiveawayStatusClosed || s == GiveawayStatusCancelled
}

// Giveaway is the aggregate holding both configuration and draw state.
// Version is bumped on every persisted draw or reroll and is the
// compare-and-swap guard for those writes.
type Giveaway struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Requirements Requirements   `json:"requirements"`
	MaxWinners   int            `json:"max_winners"`
	StartAt      *time.Time     `json:"start_at,omitempty"`
	EndAt        *time.Time     `json:"end_at,omitempty"`
	DurationS    *int64         `json:"duration_s,omitempty"`
	RemainingS   *int64         `json:"remaining_s,omitempty"`
	Status       GiveawayStatus `json:"status"`
	Draw         DrawRecord     `json:"draw"`
	Version      int64          `json:"version"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// DrawRecord is written once by the draw. Only Winners and Proofs change
// afterwards, one position at a time, through rerolls.
type DrawRecord struct {
	Seed      string        `json:"seed,omitempty"`
	InputHash string        `json:"input_hash,omitempty"`
	InputSize int           `json:"input_size"`
	DrawAt    *time.Time    `json:"draw_at,omitempty"`
	Winners   []string      `json:"winners"`
	Proofs    []WinnerProof `json:"proofs"`
}

// Drawn reports whether the draw has happened.
func (g *Giveaway) Drawn() bool {
	return g.Draw.DrawAt != nil
}

// IsDurationMode reports whether the closing time is a countdown rather than an end date.
func (g *Giveaway) IsDurationMode() bool {
	return g.EndAt == nil
}

// Validate checks the configuration of a giveaway before it is stored.
func (g *Giveaway) Validate() error {
	if g.MaxWinners < 1 {
		return ErrInvalidWinners
	}
	if g.EndAt == nil && (g.DurationS == nil || *g.DurationS <= 0) {
		return ErrInvalidWindow
	}
	return nil
}

// CanTransition reports whether an operator may move the giveaway to next.
func (g *Giveaway) CanTransition(next GiveawayStatus) bool {
	if g.Status.Terminal() || next == g.Status {
		return false
	}
	switch next {
	case GiveawayStatusActive:
		return g.Status == GiveawayStatusDraft || g.Status == GiveawayStatusPaused
	case GiveawayStatusPaused:
		return g.Status == GiveawayStatusActive
	case GiveawayStatusClosed, GiveawayStatusCancelled:
		return true
	}
	return false
}

// Transition applies a lifecycle change at now. Activating a countdown
// giveaway restarts the clock from the stored remaining seconds; pausing
// freezes what is left of it.
func (g *Giveaway) Transition(next GiveawayStatus, now time.Time) error {
	if !g.CanTransition(next) {
		return ErrInvalidTransition
	}

	switch next {
	case GiveawayStatusActive:
		if g.IsDurationMode() {
			if g.RemainingS == nil && g.DurationS != nil {
				remaining := *g.DurationS
				g.RemainingS = &remaining
			}
			start := now
			g.StartAt = &start
		} else if g.StartAt == nil {
			start := now
			g.StartAt = &start
		}
	case GiveawayStatusPaused:
		if g.IsDurationMode() {
			left := g.SecondsLeft(now)
			g.RemainingS = &left
		}
	}

	g.Status = next
	g.UpdatedAt = now
	return nil
}
