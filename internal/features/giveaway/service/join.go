package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/GDG-UAM/website-sub002/internal/common/errors"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/repository"
)

// TryJoin admits an identity into the giveaway. The registration pre-check is
// optimistic; the storage uniqueness constraint decides concurrent joins.
func (s *giveawayService) TryJoin(ctx context.Context, giveawayID string, input JoinInput) (*models.Entry, error) {
	if !input.AcceptedTerms {
		return nil, apperrors.NewValidationError("acceptTerms", "terms must be accepted")
	}

	g, err := s.Get(ctx, giveawayID)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	if !g.IsOpen(now) {
		return nil, apperrors.NewClosedError(giveawayID)
	}
	if err := g.CheckJoinRequirements(input.Identity); err != nil {
		return nil, apperrors.NewLoginRequiredError(giveawayID)
	}
	if err := input.Identity.Validate(); err != nil {
		return nil, apperrors.NewValidationError("identity", err.Error())
	}

	registered, err := s.repo.IsRegistered(ctx, giveawayID, input.Identity)
	if err != nil {
		return nil, translate(giveawayID, "check registration", err)
	}
	if registered {
		return nil, apperrors.NewDuplicateError(giveawayID)
	}

	entry := &models.Entry{
		ID:                s.opts.NewID(),
		GiveawayID:        giveawayID,
		Identity:          input.Identity,
		DeviceFingerprint: input.DeviceFingerprint,
		Confirmations:     input.Confirmations,
		CreatedAt:         now,
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			s.logger.Debug("Duplicate join lost the race",
				zap.String("giveaway_id", giveawayID),
				zap.String("identity_kind", string(input.Identity.Kind)))
		}
		return nil, translate(giveawayID, "create entry", err)
	}

	s.publishCount(ctx, giveawayID)
	return entry, nil
}

func (s *giveawayService) Count(ctx context.Context, giveawayID string) (int, error) {
	count, err := s.repo.CountEntries(ctx, giveawayID)
	if err != nil {
		return 0, translate(giveawayID, "count entries", err)
	}
	return count, nil
}

func (s *giveawayService) IsRegistered(ctx context.Context, giveawayID string, identity models.Identity) (bool, error) {
	if err := identity.Validate(); err != nil {
		return false, apperrors.NewValidationError("identity", err.Error())
	}
	registered, err := s.repo.IsRegistered(ctx, giveawayID, identity)
	if err != nil {
		return false, translate(giveawayID, "check registration", err)
	}
	return registered, nil
}

// Disqualify removes an entry from every future snapshot. It runs under the
// giveaway lock so its timestamp is ordered against the draw.
func (s *giveawayService) Disqualify(ctx context.Context, giveawayID, entryID string) error {
	err := s.withLock(ctx, giveawayID, func(ctx context.Context) error {
		g, err := s.Get(ctx, giveawayID)
		if err != nil {
			return err
		}

		at := s.opts.Now()
		if g.Drawn() && !at.After(*g.Draw.DrawAt) {
			at = g.Draw.DrawAt.Add(time.Microsecond)
		}

		if err := s.repo.Disqualify(ctx, giveawayID, entryID, at); err != nil {
			if errors.Is(err, repository.ErrEntryNotFound) {
				return apperrors.NewEntryNotFoundError(entryID)
			}
			return translate(giveawayID, "disqualify entry", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Entry disqualified",
		zap.String("giveaway_id", giveawayID),
		zap.String("entry_id", entryID))
	s.publishCount(ctx, giveawayID)
	return nil
}

// publishCount is best effort; errors are logged and dropped.
func (s *giveawayService) publishCount(ctx context.Context, giveawayID string) {
	if s.publisher == nil {
		return
	}
	count, err := s.repo.CountEntries(ctx, giveawayID)
	if err != nil {
		s.logger.Warn("Failed to count entries for notification",
			zap.String("giveaway_id", giveawayID),
			zap.Error(err))
		return
	}
	s.publisher.PublishCount(giveawayID, count)
}
