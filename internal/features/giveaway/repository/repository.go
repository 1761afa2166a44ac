package repository

import (
	"context"
	"errors"
	"time"

	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
)

var (
	ErrGiveawayNotFound = errors.New("giveaway not found")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrDuplicateEntry   = errors.New("identity already has an entry in this giveaway")
	ErrGiveawayClosed   = errors.New("giveaway is not accepting entries")
	ErrVersionConflict  = errors.New("giveaway was modified concurrently")
	ErrLockTimeout      = errors.New("failed to acquire lock: timeout")
	ErrAlreadyLocked    = errors.New("resource is already locked")
)

// GiveawayRepository stores the giveaway aggregate. Every write after Create
// is a compare-and-swap on Version and increments it on success; a stale
// expectedVersion yields ErrVersionConflict.
type GiveawayRepository interface {
	Create(ctx context.Context, giveaway *models.Giveaway) error
	GetByID(ctx context.Context, id string) (*models.Giveaway, error)

	// UpdateLifecycle persists Status, StartAt, RemainingS and UpdatedAt.
	UpdateLifecycle(ctx context.Context, giveaway *models.Giveaway, expectedVersion int64) error
	// SaveDraw persists the whole draw record and status in one write. It also
	// fails with ErrVersionConflict if a draw was already stored.
	SaveDraw(ctx context.Context, giveaway *models.Giveaway, expectedVersion int64) error
	// SaveReroll persists Winners and Proofs of an already drawn giveaway.
	SaveReroll(ctx context.Context, giveaway *models.Giveaway, expectedVersion int64) error
}

// EntryRepository is the entry ledger. CreateEntry enforces one entry per
// identity per giveaway and returns ErrDuplicateEntry for the loser of a race.
// It admits an entry only while the stored giveaway is active and undrawn, in
// the same write as the insert, and returns ErrGiveawayClosed otherwise.
type EntryRepository interface {
	CreateEntry(ctx context.Context, entry *models.Entry) error
	IsRegistered(ctx context.Context, giveawayID string, identity models.Identity) (bool, error)
	CountEntries(ctx context.Context, giveawayID string) (int, error)
	// ListEntries returns every entry of the giveaway, disqualified ones included.
	ListEntries(ctx context.Context, giveawayID string) ([]models.Entry, error)
	GetEntries(ctx context.Context, giveawayID string, ids []string) ([]models.Entry, error)
	Disqualify(ctx context.Context, giveawayID, entryID string, at time.Time) error
}

type Repository interface {
	GiveawayRepository
	EntryRepository
}

// Locker provides an exclusive lock per key. Acquire returns ErrAlreadyLocked
// when the key is held; the returned release func is safe to call once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}
