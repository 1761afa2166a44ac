package fairdraw

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
)

type RerollInput struct {
	Position int
	// Pool is the eligible snapshot with every current winner already removed.
	Pool Snapshot
	// Seed is a fresh hex seed, never derived from the draw seed.
	Seed     string
	Replaced string
	At       time.Time
}

// RerollPool removes all current winners, including the occupant of the
// position being rerolled, from the eligible snapshot.
func RerollPool(eligible Snapshot, winners []string) Snapshot {
	return eligible.Without(winners...)
}

// Reroll picks a replacement for one position from its restricted pool.
func Reroll(in RerollInput, sel Selector) (models.WinnerProof, error) {
	if sel == nil {
		sel = ModSelector{}
	}
	if in.Pool.Size() == 0 {
		return models.WinnerProof{}, ErrNoAlternativeCandidates
	}

	seed, err := hex.DecodeString(in.Seed)
	if err != nil {
		return models.WinnerProof{}, fmt.Errorf("decode reroll seed: %w", err)
	}

	ids := in.Pool.IDs()
	index := sel.Index(seed, in.Position, len(ids))

	return models.WinnerProof{
		Kind:      models.ProofKindReroll,
		Position:  in.Position,
		EntryID:   ids[index],
		Seed:      in.Seed,
		InputHash: in.Pool.Hash(),
		InputSize: in.Pool.Size(),
		At:        in.At,
		Replaced:  in.Replaced,
	}, nil
}
