package service

import (
	"errors"

	apperrors "github.com/GDG-UAM/website-sub002/internal/common/errors"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/repository"
)

// translate maps repository sentinels to application errors. AppErrors pass
// through unchanged.
func translate(giveawayID, op string, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}

	switch {
	case errors.Is(err, repository.ErrGiveawayNotFound):
		return apperrors.NewGiveawayNotFoundError(giveawayID)
	case errors.Is(err, repository.ErrDuplicateEntry):
		return apperrors.NewDuplicateError(giveawayID)
	case errors.Is(err, repository.ErrGiveawayClosed):
		return apperrors.NewClosedError(giveawayID)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConcurrencyConflictError(giveawayID, err)
	case errors.Is(err, repository.ErrLockTimeout), errors.Is(err, repository.ErrAlreadyLocked):
		return apperrors.NewConcurrencyConflictError(giveawayID, err)
	}
	return apperrors.NewDatabaseError(op, err).WithContext("giveaway_id", giveawayID)
}
