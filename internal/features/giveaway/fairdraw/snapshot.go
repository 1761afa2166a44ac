package fairdraw

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
)

// Snapshot is the frozen, totally ordered candidate list of one draw or reroll.
type Snapshot struct {
	ids []string
}

// NewSnapshot drops disqualified entries and orders the rest by creation
// time, then by id.
func NewSnapshot(entries []models.Entry) Snapshot {
	return build(entries, func(e *models.Entry) bool { return !e.Disqualified })
}

// NewSnapshotAt rebuilds the snapshot as it was at instant at: entries created
// later are left out and entries disqualified later are kept.
func NewSnapshotAt(entries []models.Entry, at time.Time) Snapshot {
	return build(entries, func(e *models.Entry) bool { return e.EligibleAt(at) })
}

func build(entries []models.Entry, keep func(*models.Entry) bool) Snapshot {
	eligible := make([]models.Entry, 0, len(entries))
	for i := range entries {
		if keep(&entries[i]) {
			eligible = append(eligible, entries[i])
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if !eligible[i].CreatedAt.Equal(eligible[j].CreatedAt) {
			return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
		}
		return eligible[i].ID < eligible[j].ID
	})

	ids := make([]string, len(eligible))
	for i, e := range eligible {
		ids[i] = e.ID
	}
	return Snapshot{ids: ids}
}

// SnapshotOf wraps ids that are already in snapshot order.
func SnapshotOf(ids []string) Snapshot {
	return Snapshot{ids: append([]string(nil), ids...)}
}

// Without returns a snapshot with the given ids removed, order preserved.
func (s Snapshot) Without(exclude ...string) Snapshot {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	ids := make([]string, 0, len(s.ids))
	for _, id := range s.ids {
		if _, ok := skip[id]; !ok {
			ids = append(ids, id)
		}
	}
	return Snapshot{ids: ids}
}

func (s Snapshot) IDs() []string {
	return append([]string(nil), s.ids...)
}

func (s Snapshot) Size() int {
	return len(s.ids)
}

// Hash is hex(SHA-256(id_0 || id_1 || ... || id_n-1)).
func (s Snapshot) Hash() string {
	h := sha256.New()
	for _, id := range s.ids {
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}
