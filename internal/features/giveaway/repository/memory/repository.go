package memory

import (
	"context"
	"sync"
	"time"

	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/repository"
)

// Repository keeps giveaways and entries in process memory. It is used when
// no database is configured and by tests.
type Repository struct {
	mu        sync.RWMutex
	giveaways map[string]models.Giveaway
	entries   map[string][]models.Entry
	// identities indexes identity -> entry id per giveaway
	identities map[string]map[models.Identity]string
}

var _ repository.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		giveaways:  make(map[string]models.Giveaway),
		entries:    make(map[string][]models.Entry),
		identities: make(map[string]map[models.Identity]string),
	}
}

func (r *Repository) Create(_ context.Context, giveaway *models.Giveaway) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.giveaways[giveaway.ID] = cloneGiveaway(*giveaway)
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*models.Giveaway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.giveaways[id]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	out := cloneGiveaway(g)
	return &out, nil
}

func (r *Repository) UpdateLifecycle(_ context.Context, giveaway *models.Giveaway, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.casLocked(giveaway.ID, expectedVersion)
	if err != nil {
		return err
	}
	stored.Status = giveaway.Status
	stored.StartAt = giveaway.StartAt
	stored.RemainingS = giveaway.RemainingS
	stored.UpdatedAt = giveaway.UpdatedAt
	r.commitLocked(stored, giveaway)
	return nil
}

func (r *Repository) SaveDraw(_ context.Context, giveaway *models.Giveaway, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.casLocked(giveaway.ID, expectedVersion)
	if err != nil {
		return err
	}
	if stored.Drawn() {
		return repository.ErrVersionConflict
	}
	stored.Draw = giveaway.Draw
	stored.Status = giveaway.Status
	stored.UpdatedAt = giveaway.UpdatedAt
	r.commitLocked(stored, giveaway)
	return nil
}

func (r *Repository) SaveReroll(_ context.Context, giveaway *models.Giveaway, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.casLocked(giveaway.ID, expectedVersion)
	if err != nil {
		return err
	}
	if !stored.Drawn() {
		return repository.ErrVersionConflict
	}
	stored.Draw.Winners = giveaway.Draw.Winners
	stored.Draw.Proofs = giveaway.Draw.Proofs
	stored.UpdatedAt = giveaway.UpdatedAt
	r.commitLocked(stored, giveaway)
	return nil
}

func (r *Repository) casLocked(id string, expectedVersion int64) (models.Giveaway, error) {
	stored, ok := r.giveaways[id]
	if !ok {
		return models.Giveaway{}, repository.ErrGiveawayNotFound
	}
	if stored.Version != expectedVersion {
		return models.Giveaway{}, repository.ErrVersionConflict
	}
	return stored, nil
}

func (r *Repository) commitLocked(stored models.Giveaway, caller *models.Giveaway) {
	stored.Version++
	r.giveaways[stored.ID] = cloneGiveaway(stored)
	caller.Version = stored.Version
}

func (r *Repository) CreateEntry(_ context.Context, entry *models.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.giveaways[entry.GiveawayID]
	if !ok {
		return repository.ErrGiveawayNotFound
	}
	if g.Status != models.GiveawayStatusActive || g.Drawn() {
		return repository.ErrGiveawayClosed
	}

	index, ok := r.identities[entry.GiveawayID]
	if !ok {
		index = make(map[models.Identity]string)
		r.identities[entry.GiveawayID] = index
	}
	if _, exists := index[entry.Identity]; exists {
		return repository.ErrDuplicateEntry
	}

	index[entry.Identity] = entry.ID
	r.entries[entry.GiveawayID] = append(r.entries[entry.GiveawayID], *entry)
	return nil
}

func (r *Repository) IsRegistered(_ context.Context, giveawayID string, identity models.Identity) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.identities[giveawayID][identity]
	return ok, nil
}

func (r *Repository) CountEntries(_ context.Context, giveawayID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, e := range r.entries[giveawayID] {
		if !e.Disqualified {
			count++
		}
	}
	return count, nil
}

func (r *Repository) ListEntries(_ context.Context, giveawayID string) ([]models.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.entries[giveawayID]
	out := make([]models.Entry, 0, len(entries))
	out = append(out, entries...)
	return out, nil
}

func (r *Repository) GetEntries(_ context.Context, giveawayID string, ids []string) ([]models.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID := make(map[string]models.Entry, len(r.entries[giveawayID]))
	for _, e := range r.entries[giveawayID] {
		byID[e.ID] = e
	}

	out := make([]models.Entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *Repository) Disqualify(_ context.Context, giveawayID, entryID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.entries[giveawayID]
	for i := range entries {
		if entries[i].ID == entryID {
			if !entries[i].Disqualified {
				entries[i].Disqualified = true
				entries[i].DisqualifiedAt = &at
			}
			return nil
		}
	}
	return repository.ErrEntryNotFound
}

func cloneGiveaway(g models.Giveaway) models.Giveaway {
	g.Draw.Winners = append([]string(nil), g.Draw.Winners...)
	g.Draw.Proofs = append([]models.WinnerProof(nil), g.Draw.Proofs...)
	return g
}
