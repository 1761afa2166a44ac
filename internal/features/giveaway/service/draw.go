package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	apperrors "github.com/GDG-UAM/website-sub002/internal/common/errors"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/fairdraw"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/repository"
)

// Draw selects the winners once. Calling it again returns the stored result.
func (s *giveawayService) Draw(ctx context.Context, giveawayID string) (*DrawResult, error) {
	g, err := s.Get(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if g.Drawn() {
		return newDrawResult(g), nil
	}
	if err := checkDrawable(g); err != nil {
		return nil, err
	}

	var result *DrawResult
	err = s.withLock(ctx, giveawayID, func(ctx context.Context) error {
		g, err := s.Get(ctx, giveawayID)
		if err != nil {
			return err
		}
		if g.Drawn() {
			result = newDrawResult(g)
			return nil
		}
		if err := checkDrawable(g); err != nil {
			return err
		}
		if err := s.sealEntries(ctx, g); err != nil {
			if stored := s.landedDraw(ctx, giveawayID, err); stored != nil {
				result = stored
				return nil
			}
			return translate(giveawayID, "close giveaway for draw", err)
		}

		entries, err := s.repo.ListEntries(ctx, giveawayID)
		if err != nil {
			return translate(giveawayID, "list entries", err)
		}

		now := s.opts.Now()
		snapshot := fairdraw.NewSnapshotAt(entries, now)
		seed, err := s.opts.NewSeed()
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to generate draw seed")
		}

		proofs := fairdraw.Draw(fairdraw.DrawInput{
			GiveawayID: giveawayID,
			Seed:       seed,
			Snapshot:   snapshot,
			MaxWinners: g.MaxWinners,
			At:         now,
		}, s.opts.Selector)

		expected := g.Version
		g.Draw = models.DrawRecord{
			Seed:      seed,
			InputHash: snapshot.Hash(),
			InputSize: snapshot.Size(),
			DrawAt:    &now,
			Winners:   fairdraw.Winners(proofs),
			Proofs:    proofs,
		}
		g.Status = models.GiveawayStatusClosed
		g.UpdatedAt = now

		if err := s.repo.SaveDraw(ctx, g, expected); err != nil {
			if stored := s.landedDraw(ctx, giveawayID, err); stored != nil {
				result = stored
				return nil
			}
			return translate(giveawayID, "save draw", err)
		}

		s.logger.Info("Giveaway drawn",
			zap.String("giveaway_id", giveawayID),
			zap.Int("entrants", snapshot.Size()),
			zap.Int("winners", len(proofs)),
			zap.String("input_hash", g.Draw.InputHash))
		result = newDrawResult(g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reroll replaces the winner at one position with an entrant from the pool
// of eligible entries that hold no position. Other positions and the draw
// commitment are left untouched.
func (s *giveawayService) Reroll(ctx context.Context, giveawayID string, position int) (*DrawResult, error) {
	if position < 0 {
		return nil, apperrors.NewValidationError("position", "must not be negative")
	}

	var result *DrawResult
	err := s.withLock(ctx, giveawayID, func(ctx context.Context) error {
		g, err := s.Get(ctx, giveawayID)
		if err != nil {
			return err
		}
		if !g.Drawn() {
			return apperrors.NewValidationError("giveaway", "has not been drawn yet")
		}
		if position >= len(g.Draw.Proofs) {
			return apperrors.NewValidationError("position", "out of range").
				WithDetail("positions", len(g.Draw.Proofs))
		}

		entries, err := s.repo.ListEntries(ctx, giveawayID)
		if err != nil {
			return translate(giveawayID, "list entries", err)
		}
		now := s.opts.Now()
		pool := fairdraw.RerollPool(fairdraw.NewSnapshotAt(entries, now), g.Draw.Winners)
		if pool.Size() == 0 {
			return apperrors.NewNoAlternativeCandidatesError(giveawayID, position)
		}

		seed, err := s.opts.NewSeed()
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to generate reroll seed")
		}

		replaced := g.Draw.Winners[position]
		proof, err := fairdraw.Reroll(fairdraw.RerollInput{
			Position: position,
			Pool:     pool,
			Seed:     seed,
			Replaced: replaced,
			At:       now,
		}, s.opts.Selector)
		if err != nil {
			if errors.Is(err, fairdraw.ErrNoAlternativeCandidates) {
				return apperrors.NewNoAlternativeCandidatesError(giveawayID, position)
			}
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Reroll failed")
		}

		expected := g.Version
		winners := append([]string(nil), g.Draw.Winners...)
		proofs := append([]models.WinnerProof(nil), g.Draw.Proofs...)
		winners[position] = proof.EntryID
		proofs[position] = proof
		g.Draw.Winners = winners
		g.Draw.Proofs = proofs
		g.UpdatedAt = now

		if err := s.repo.SaveReroll(ctx, g, expected); err != nil {
			return translate(giveawayID, "save reroll", err)
		}

		s.logger.Info("Winner rerolled",
			zap.String("giveaway_id", giveawayID),
			zap.Int("position", position),
			zap.String("replaced", replaced),
			zap.String("entry_id", proof.EntryID),
			zap.Int("pool", pool.Size()))
		result = newDrawResult(g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetWinners lists winning positions in order with their entries. An
// undrawn giveaway has none.
func (s *giveawayService) GetWinners(ctx context.Context, giveawayID string) ([]Winner, error) {
	g, err := s.Get(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if !g.Drawn() || len(g.Draw.Winners) == 0 {
		return []Winner{}, nil
	}

	entries, err := s.repo.GetEntries(ctx, giveawayID, g.Draw.Winners)
	if err != nil {
		return nil, translate(giveawayID, "get winner entries", err)
	}
	byID := make(map[string]*models.Entry, len(entries))
	for i := range entries {
		byID[entries[i].ID] = &entries[i]
	}

	winners := make([]Winner, len(g.Draw.Winners))
	for i, id := range g.Draw.Winners {
		winners[i] = Winner{Position: i, Entry: byID[id]}
		if i < len(g.Draw.Proofs) {
			winners[i].Proof = g.Draw.Proofs[i]
		}
	}
	return winners, nil
}

// sealEntries closes the giveaway before its entries are read. Storage refuses
// entries for a closed giveaway, so the list read afterwards is final and
// every entry in it predates the draw.
func (s *giveawayService) sealEntries(ctx context.Context, g *models.Giveaway) error {
	if g.Status == models.GiveawayStatusClosed {
		return nil
	}
	if err := g.Transition(models.GiveawayStatusClosed, s.opts.Now()); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeInternal, "Failed to close giveaway %s for draw", g.ID)
	}
	return s.repo.UpdateLifecycle(ctx, g, g.Version)
}

// landedDraw returns the stored draw when err is a version conflict caused by
// another draw, which can happen once our lock lease has expired.
func (s *giveawayService) landedDraw(ctx context.Context, giveawayID string, err error) *DrawResult {
	if !errors.Is(err, repository.ErrVersionConflict) {
		return nil
	}
	stored, getErr := s.Get(ctx, giveawayID)
	if getErr != nil || !stored.Drawn() {
		return nil
	}
	return newDrawResult(stored)
}

func checkDrawable(g *models.Giveaway) error {
	switch g.Status {
	case models.GiveawayStatusDraft:
		return apperrors.NewValidationError("status", "a draft giveaway cannot be drawn")
	case models.GiveawayStatusCancelled:
		return apperrors.NewValidationError("status", "a cancelled giveaway cannot be drawn")
	}
	return nil
}

func newDrawResult(g *models.Giveaway) *DrawResult {
	r := &DrawResult{
		GiveawayID: g.ID,
		Seed:       g.Draw.Seed,
		InputHash:  g.Draw.InputHash,
		InputSize:  g.Draw.InputSize,
		Winners:    append([]string{}, g.Draw.Winners...),
		Proofs:     append([]models.WinnerProof{}, g.Draw.Proofs...),
	}
	if g.Draw.DrawAt != nil {
		r.DrawAt = *g.Draw.DrawAt
	}
	return r
}
