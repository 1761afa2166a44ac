// Package fairdraw implements the commit/reveal winner selection and the
// per-position reroll, plus the recomputation used to verify both.
package fairdraw

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
	"github.com/GDG-UAM/website-sub002/internal/utils/random"
)

// SeedBytes is the size of a draw or reroll seed (256 bits).
const SeedBytes = 32

var ErrNoAlternativeCandidates = errors.New("no alternative candidates for this position")

// Selector maps a position seed onto an index into the remaining candidates.
type Selector interface {
	Index(seed []byte, position, remaining int) int
}

// ModSelector reads the seed as a big-endian integer and reduces it modulo
// the number of remaining candidates.
type ModSelector struct{}

func (ModSelector) Index(seed []byte, _ int, remaining int) int {
	return random.Mod(seed, remaining)
}

// NewSeed returns a fresh hex encoded 256-bit seed.
func NewSeed() (string, error) {
	return random.Hex(SeedBytes)
}

// PositionSeed is HMAC-SHA256 keyed with the published draw seed over
// "<giveawayID>:<position>".
func PositionSeed(drawSeed, giveawayID string, position int) []byte {
	mac := hmac.New(sha256.New, []byte(drawSeed))
	mac.Write([]byte(giveawayID + ":" + strconv.Itoa(position)))
	return mac.Sum(nil)
}

type DrawInput struct {
	GiveawayID string
	Seed       string
	Snapshot   Snapshot
	MaxWinners int
	At         time.Time
}

// Draw selects min(MaxWinners, n) winners one position at a time, removing
// each chosen entry before the next position is computed. A nil selector
// means ModSelector.
func Draw(in DrawInput, sel Selector) []models.WinnerProof {
	if sel == nil {
		sel = ModSelector{}
	}

	remaining := in.Snapshot.IDs()
	inputHash := in.Snapshot.Hash()
	inputSize := in.Snapshot.Size()

	count := in.MaxWinners
	if count > len(remaining) {
		count = len(remaining)
	}

	proofs := make([]models.WinnerProof, 0, max(count, 0))
	for position := 0; position < count; position++ {
		seed := PositionSeed(in.Seed, in.GiveawayID, position)
		index := sel.Index(seed, position, len(remaining))
		chosen := remaining[index]
		remaining = append(remaining[:index], remaining[index+1:]...)

		proofs = append(proofs, models.WinnerProof{
			Kind:      models.ProofKindDraw,
			Position:  position,
			EntryID:   chosen,
			Seed:      hex.EncodeToString(seed),
			InputHash: inputHash,
			InputSize: inputSize,
			At:        in.At,
		})
	}
	return proofs
}

// Winners returns the entry ids of proofs in position order.
func Winners(proofs []models.WinnerProof) []string {
	winners := make([]string, len(proofs))
	for i, p := range proofs {
		winners[i] = p.EntryID
	}
	return winners
}
