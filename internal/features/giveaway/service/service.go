package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GDG-UAM/website-sub002/internal/common/cache"
	apperrors "github.com/GDG-UAM/website-sub002/internal/common/errors"
	"github.com/GDG-UAM/website-sub002/internal/common/validation"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/fairdraw"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/repository"
)

// Options tunes locking and lets tests replace the sources of time, ids and
// randomness. Zero values fall back to production defaults.
type Options struct {
	LockTTL           time.Duration
	LockWaitTimeout   time.Duration
	LockRetryInterval time.Duration

	// Cache holds verification reports keyed by giveaway version. Optional.
	Cache          cache.Cache
	VerifyCacheTTL time.Duration

	Now      func() time.Time
	NewID    func() string
	NewSeed  func() (string, error)
	Selector fairdraw.Selector
}

func (o *Options) applyDefaults() {
	if o.LockTTL <= 0 {
		o.LockTTL = DefaultLockTTL
	}
	if o.LockWaitTimeout <= 0 {
		o.LockWaitTimeout = DefaultLockWaitTimeout
	}
	if o.LockRetryInterval <= 0 {
		o.LockRetryInterval = DefaultLockRetryInterval
	}
	if o.VerifyCacheTTL <= 0 {
		o.VerifyCacheTTL = DefaultVerifyCacheTTL
	}
	if o.Now == nil {
		// postgres keeps microseconds
		o.Now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.NewSeed == nil {
		o.NewSeed = fairdraw.NewSeed
	}
	if o.Selector == nil {
		o.Selector = fairdraw.ModSelector{}
	}
}

type giveawayService struct {
	repo      repository.Repository
	locker    repository.Locker
	publisher CountPublisher
	opts      Options
	logger    *zap.Logger
}

func NewGiveawayService(
	repo repository.Repository,
	locker repository.Locker,
	publisher CountPublisher,
	opts Options,
	logger *zap.Logger,
) GiveawayService {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &giveawayService{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

func (s *giveawayService) Create(ctx context.Context, input CreateInput) (*models.Giveaway, error) {
	now := s.opts.Now()
	g := &models.Giveaway{
		ID:           s.opts.NewID(),
		Title:        input.Title,
		Description:  input.Description,
		Requirements: input.Requirements,
		MaxWinners:   input.MaxWinners,
		StartAt:      input.StartAt,
		EndAt:        input.EndAt,
		DurationS:    input.DurationS,
		Status:       models.GiveawayStatusDraft,
		Draw:         models.DrawRecord{Winners: []string{}, Proofs: []models.WinnerProof{}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := validation.ValidateTitle(input.Title); err != nil {
		return nil, apperrors.NewValidationError("title", err.Error())
	}
	if err := validation.ValidateDescription(input.Description); err != nil {
		return nil, apperrors.NewValidationError("description", err.Error())
	}
	if input.EndAt != nil && input.DurationS != nil {
		return nil, apperrors.NewValidationError("window", "set either endAt or durationS, not both")
	}
	if err := g.Validate(); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidWinners):
			return nil, apperrors.NewValidationError("maxWinners", err.Error())
		default:
			return nil, apperrors.NewValidationError("window", err.Error())
		}
	}
	if g.EndAt != nil && g.StartAt != nil && !g.EndAt.After(*g.StartAt) {
		return nil, apperrors.NewValidationError("endAt", "must be after startAt")
	}

	if err := s.repo.Create(ctx, g); err != nil {
		return nil, translate(g.ID, "create giveaway", err)
	}

	s.logger.Info("Giveaway created",
		zap.String("giveaway_id", g.ID),
		zap.Int("max_winners", g.MaxWinners),
		zap.Bool("duration_mode", g.IsDurationMode()))
	return g, nil
}

func (s *giveawayService) Get(ctx context.Context, giveawayID string) (*models.Giveaway, error) {
	g, err := s.repo.GetByID(ctx, giveawayID)
	if err != nil {
		return nil, translate(giveawayID, "get giveaway", err)
	}
	return g, nil
}

// UpdateStatus moves the giveaway through its lifecycle. It takes the same
// lock as the draw so a transition never interleaves with one.
func (s *giveawayService) UpdateStatus(ctx context.Context, giveawayID string, status models.GiveawayStatus) (*models.Giveaway, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("status", "unknown status")
	}

	var updated *models.Giveaway
	err := s.withLock(ctx, giveawayID, func(ctx context.Context) error {
		g, err := s.Get(ctx, giveawayID)
		if err != nil {
			return err
		}

		expected := g.Version
		if err := g.Transition(status, s.opts.Now()); err != nil {
			return apperrors.NewValidationError("status",
				"cannot move from "+string(g.Status)+" to "+string(status))
		}
		if err := s.repo.UpdateLifecycle(ctx, g, expected); err != nil {
			return translate(giveawayID, "update lifecycle", err)
		}
		updated = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Giveaway status changed",
		zap.String("giveaway_id", giveawayID),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

// withLock runs fn while holding the giveaway's exclusive lock. Acquisition
// is retried until LockWaitTimeout; a busy lock then surfaces as a
// concurrency conflict.
func (s *giveawayService) withLock(ctx context.Context, giveawayID string, fn func(context.Context) error) error {
	key := lockKey(giveawayID)
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.LockWaitTimeout)
	defer cancel()

	var release func(context.Context) error
	for {
		var err error
		release, err = s.locker.Acquire(waitCtx, key, s.opts.LockTTL)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrAlreadyLocked) && waitCtx.Err() == nil {
			return apperrors.NewLockError("acquire", err).WithContext("giveaway_id", giveawayID)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("Timed out waiting for giveaway lock", zap.String("giveaway_id", giveawayID))
			return apperrors.NewConcurrencyConflictError(giveawayID, repository.ErrLockTimeout)
		case <-time.After(s.opts.LockRetryInterval):
		}
	}

	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release giveaway lock",
				zap.String("giveaway_id", giveawayID),
				zap.Error(err))
		}
	}()

	return fn(ctx)
}
