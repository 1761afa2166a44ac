package models

import "time"

// ProofKind tells how the seed of a proof was obtained and which snapshot
// it was computed against.
type ProofKind string

const (
	// ProofKindDraw seeds are HMAC-SHA256(drawSeed, giveawayID:position) over the full snapshot.
	ProofKindDraw ProofKind = "draw"
	// ProofKindReroll seeds are fresh random values over the restricted pool of that reroll.
	ProofKindReroll ProofKind = "reroll"
)

// WinnerProof records everything needed to recompute one winner position.
type WinnerProof struct {
	Kind      ProofKind `json:"kind"`
	Position  int       `json:"position"`
	EntryID   string    `json:"entry_id"`
	Seed      string    `json:"seed"`
	InputHash string    `json:"input_hash"`
	InputSize int       `json:"input_size"`
	At        time.Time `json:"at"`
	// Replaced is the entry a reroll took the position from.
	Replaced string `json:"replaced,omitempty"`
}
