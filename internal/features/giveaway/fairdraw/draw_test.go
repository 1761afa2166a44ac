package fairdraw

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
)

var base = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

// positionSelector treats every seed as zero: index = (0 + position) mod remaining.
type positionSelector struct{}

func (positionSelector) Index(_ []byte, position, remaining int) int {
	return position % remaining
}

func createTestEntries(n int) []models.Entry {
	entries := make([]models.Entry, n)
	for i := range entries {
		entries[i] = models.Entry{
			ID:        fmt.Sprintf("e%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
	}
	return entries
}

func TestNewSnapshotOrdering(t *testing.T) {
	t.Parallel()

	entries := []models.Entry{
		{ID: "c", CreatedAt: base.Add(time.Second)},
		{ID: "b", CreatedAt: base},
		{ID: "a", CreatedAt: base},
		{ID: "d", CreatedAt: base, Disqualified: true},
	}

	snap := NewSnapshot(entries)
	assert.Equal(t, []string{"a", "b", "c"}, snap.IDs())
	assert.Equal(t, 3, snap.Size())

	sum := sha256.Sum256([]byte("abc"))
	assert.Equal(t, hex.EncodeToString(sum[:]), snap.Hash())
}

func TestDrawWithPositionSelector(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot(createTestEntries(5))
	proofs := Draw(DrawInput{GiveawayID: "g1", Seed: "00", Snapshot: snap, MaxWinners: 2, At: base}, positionSelector{})

	require.Len(t, proofs, 2)
	assert.Equal(t, []string{"e0", "e2"}, Winners(proofs))
	for i, p := range proofs {
		assert.Equal(t, i, p.Position)
		assert.Equal(t, models.ProofKindDraw, p.Kind)
		assert.Equal(t, snap.Hash(), p.InputHash)
		assert.Equal(t, 5, p.InputSize)
	}

	pool := RerollPool(snap, Winners(proofs))
	assert.Equal(t, []string{"e1", "e3", "e4"}, pool.IDs())
}

func TestDrawIsDeterministic(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot(createTestEntries(40))
	seed, err := NewSeed()
	require.NoError(t, err)

	in := DrawInput{GiveawayID: "g1", Seed: seed, Snapshot: snap, MaxWinners: 7, At: base}
	first := Draw(in, nil)
	second := Draw(in, nil)

	assert.Equal(t, first, second)

	other := in
	other.GiveawayID = "g2"
	assert.NotEqual(t, Winners(first), Winners(Draw(other, nil)))
}

func TestDrawWinnersAreDistinct(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot(createTestEntries(25))
	for i := 0; i < 50; i++ {
		seed, err := NewSeed()
		require.NoError(t, err)

		proofs := Draw(DrawInput{GiveawayID: "g1", Seed: seed, Snapshot: snap, MaxWinners: 10}, nil)
		seen := make(map[string]struct{}, len(proofs))
		for _, p := range proofs {
			_, dup := seen[p.EntryID]
			require.False(t, dup, "entry %s won twice", p.EntryID)
			seen[p.EntryID] = struct{}{}
		}
		assert.Len(t, seen, 10)
	}
}

func TestDrawMoreWinnersThanEntries(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot(createTestEntries(3))
	proofs := Draw(DrawInput{GiveawayID: "g1", Seed: "ab", Snapshot: snap, MaxWinners: 10}, nil)

	require.Len(t, proofs, 3)
	assert.ElementsMatch(t, []string{"e0", "e1", "e2"}, Winners(proofs))
}

func TestDrawEmptySnapshot(t *testing.T) {
	t.Parallel()

	proofs := Draw(DrawInput{GiveawayID: "g1", Seed: "ab", Snapshot: NewSnapshot(nil), MaxWinners: 3}, nil)
	assert.Empty(t, proofs)
}

func TestPositionSeedMatchesHMAC(t *testing.T) {
	t.Parallel()

	a := PositionSeed("seed", "g1", 0)
	b := PositionSeed("seed", "g1", 1)
	assert.Len(t, a, sha256.Size)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, PositionSeed("seed", "g1", 0))
}

func TestRerollPicksFromRestrictedPool(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot(createTestEntries(5))
	pool := RerollPool(snap, []string{"e0", "e2"})

	for i := 0; i < 30; i++ {
		seed, err := NewSeed()
		require.NoError(t, err)

		proof, err := Reroll(RerollInput{Position: 1, Pool: pool, Seed: seed, Replaced: "e2", At: base}, nil)
		require.NoError(t, err)

		assert.Contains(t, []string{"e1", "e3", "e4"}, proof.EntryID)
		assert.Equal(t, models.ProofKindReroll, proof.Kind)
		assert.Equal(t, pool.Hash(), proof.InputHash)
		assert.Equal(t, 3, proof.InputSize)
		assert.Equal(t, seed, proof.Seed)
		require.NoError(t, VerifyReroll(proof, pool))
	}
}

func TestRerollEmptyPool(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot(createTestEntries(2))
	_, err := Reroll(RerollInput{Position: 0, Pool: RerollPool(snap, []string{"e0", "e1"}), Seed: "00"}, nil)
	assert.ErrorIs(t, err, ErrNoAlternativeCandidates)
}

func TestNewSnapshotAt(t *testing.T) {
	t.Parallel()

	drawAt := base.Add(time.Minute)
	later := drawAt.Add(time.Hour)
	earlier := base.Add(-time.Hour)

	entries := createTestEntries(4)
	entries[1].Disqualified = true
	entries[1].DisqualifiedAt = &later // disqualified after the draw
	entries[2].Disqualified = true
	entries[2].DisqualifiedAt = &earlier
	entries[3].CreatedAt = later // joined after the draw

	assert.Equal(t, []string{"e0", "e1"}, NewSnapshotAt(entries, drawAt).IDs())
	assert.Equal(t, []string{"e0", "e3"}, NewSnapshot(entries).IDs())
}
