package service

import (
	"context"
	"errors"

	"github.com/GDG-UAM/website-sub002/internal/common/cache"
	apperrors "github.com/GDG-UAM/website-sub002/internal/common/errors"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/fairdraw"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
)

// Verify recomputes the draw from the stored entries and draw record, the
// same way a third party holding the published data would.
func (s *giveawayService) Verify(ctx context.Context, giveawayID string) (*VerifyResult, error) {
	g, err := s.Get(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if !g.Drawn() {
		return nil, apperrors.NewValidationError("giveaway", "has not been drawn yet")
	}

	if s.opts.Cache == nil {
		return s.verify(ctx, g)
	}
	// entries cannot change the outcome once drawn, so the version pins the report
	return cache.GetOrSet(ctx, s.opts.Cache, verifyCacheKey(giveawayID, g.Version), s.opts.VerifyCacheTTL,
		func() (*VerifyResult, error) { return s.verify(ctx, g) })
}

func (s *giveawayService) verify(ctx context.Context, g *models.Giveaway) (*VerifyResult, error) {
	giveawayID := g.ID
	entries, err := s.repo.ListEntries(ctx, giveawayID)
	if err != nil {
		return nil, translate(giveawayID, "list entries", err)
	}

	result := &VerifyResult{
		GiveawayID: giveawayID,
		Seed:       g.Draw.Seed,
		InputHash:  g.Draw.InputHash,
		InputSize:  g.Draw.InputSize,
		DrawAt:     *g.Draw.DrawAt,
	}

	snapshot := fairdraw.NewSnapshotAt(entries, *g.Draw.DrawAt)
	checks, err := fairdraw.VerifyDraw(giveawayID, g.Draw.Seed, g.Draw.InputHash, g.Draw.InputSize, snapshot, g.Draw.Proofs)
	if err != nil {
		if errors.Is(err, fairdraw.ErrInputMismatch) {
			result.Reason = "entrant list does not match the committed hash"
			return result, nil
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Verification failed")
	}

	for i, p := range g.Draw.Proofs {
		if p.Kind != models.ProofKindReroll {
			continue
		}
		checks[i] = verifyRerollProof(g, entries, i, p)
	}

	result.Checks = checks
	result.Valid = true
	for _, c := range checks {
		if c.Checked && !c.Valid {
			result.Valid = false
			result.Reason = "one or more positions do not match"
			break
		}
	}
	return result, nil
}

// verifyRerollProof rebuilds the pool a reroll drew from: the entries
// eligible at reroll time minus the other current winners and the displaced
// one. A later reroll of another position changes that set, in which case
// the proof is reported unchecked.
func verifyRerollProof(g *models.Giveaway, entries []models.Entry, position int, p models.WinnerProof) fairdraw.Check {
	check := fairdraw.Check{Position: p.Position, Kind: p.Kind, EntryID: p.EntryID}

	exclude := make([]string, 0, len(g.Draw.Winners))
	for i, id := range g.Draw.Winners {
		if i != position {
			exclude = append(exclude, id)
		}
	}
	if p.Replaced != "" {
		exclude = append(exclude, p.Replaced)
	}
	pool := fairdraw.NewSnapshotAt(entries, p.At).Without(exclude...)

	if pool.Hash() != p.InputHash || pool.Size() != p.InputSize {
		check.Reason = "pool changed by a later reroll"
		return check
	}

	check.Checked = true
	if err := fairdraw.VerifyReroll(p, pool); err != nil {
		check.Reason = err.Error()
		return check
	}
	check.Valid = true
	return check
}
