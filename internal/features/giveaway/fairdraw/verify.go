package fairdraw

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
)

var (
	ErrInputMismatch = errors.New("snapshot does not match the committed input")
	ErrProofMismatch = errors.New("proof does not match recomputation")
)

// Check is the verification outcome of one winner position.
type Check struct {
	Position int              `json:"position"`
	Kind     models.ProofKind `json:"kind"`
	EntryID  string           `json:"entry_id"`
	Checked  bool             `json:"checked"`
	Valid    bool             `json:"valid"`
	Reason   string           `json:"reason,omitempty"`
}

// VerifyDraw recomputes the sequential selection from the published seed and
// the ordered entrant ids and compares it with every draw proof. Reroll
// proofs are left unchecked here; see VerifyReroll.
func VerifyDraw(giveawayID, drawSeed, inputHash string, inputSize int, snapshot Snapshot, proofs []models.WinnerProof) ([]Check, error) {
	if snapshot.Hash() != inputHash || snapshot.Size() != inputSize {
		return nil, ErrInputMismatch
	}

	expected := Draw(DrawInput{
		GiveawayID: giveawayID,
		Seed:       drawSeed,
		Snapshot:   snapshot,
		MaxWinners: len(proofs),
	}, nil)

	checks := make([]Check, len(proofs))
	for i, p := range proofs {
		checks[i] = Check{Position: p.Position, Kind: p.Kind, EntryID: p.EntryID}
		if p.Kind == models.ProofKindReroll {
			continue
		}
		checks[i].Checked = true

		if p.Position != i || i >= len(expected) {
			checks[i].Reason = "position out of sequence"
			continue
		}
		want := expected[i]
		switch {
		case p.Seed != want.Seed:
			checks[i].Reason = "seed differs"
		case p.EntryID != want.EntryID:
			checks[i].Reason = fmt.Sprintf("expected entry %s", want.EntryID)
		case p.InputHash != want.InputHash || p.InputSize != want.InputSize:
			checks[i].Reason = "input commitment differs"
		default:
			checks[i].Valid = true
		}
	}
	return checks, nil
}

// VerifyReroll checks a reroll proof against the pool it claims to have used.
func VerifyReroll(proof models.WinnerProof, pool Snapshot) error {
	if pool.Hash() != proof.InputHash || pool.Size() != proof.InputSize {
		return ErrInputMismatch
	}
	if pool.Size() == 0 {
		return ErrProofMismatch
	}
	seed, err := hex.DecodeString(proof.Seed)
	if err != nil {
		return fmt.Errorf("%w: seed is not hex", ErrProofMismatch)
	}
	ids := pool.IDs()
	if ids[ModSelector{}.Index(seed, proof.Position, len(ids))] != proof.EntryID {
		return ErrProofMismatch
	}
	return nil
}
