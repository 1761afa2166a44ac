package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GDG-UAM/website-sub002/internal/common/cache"
	apperrors "github.com/GDG-UAM/website-sub002/internal/common/errors"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/notifier"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/repository"
)

func TestConcurrentJoinsSameIdentity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.seedGiveaway(t, "g1", 1)

	var created, duplicates atomic.Int32
	var wg conc.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Go(func() {
			_, err := f.svc.TryJoin(ctx, "g1", JoinInput{Identity: models.UserIdentity("42"), AcceptedTerms: true})
			switch {
			case err == nil:
				created.Add(1)
			case apperrors.HasCode(err, apperrors.ErrCodeAlreadyJoined):
				duplicates.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(49), duplicates.Load())

	count, err := f.svc.Count(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

type failingBroker struct{}

func (failingBroker) Publish(context.Context, string, string, []byte) error {
	return fmt.Errorf("broker down")
}

func (failingBroker) Subscribe(context.Context, string) (*notifier.Subscription, error) {
	return nil, fmt.Errorf("broker down")
}

func (failingBroker) Close() error { return nil }

func TestJoinSucceedsWhenNotifierFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	counts, err := notifier.NewCountNotifier(failingBroker{}, 2, zap.NewNop())
	require.NoError(t, err)
	defer counts.Close(time.Second)

	f := newFixture(t)
	f.svc = NewGiveawayService(f.repo, f.locker, counts, Options{Now: f.clock.Now}, nil)
	f.seedGiveaway(t, "g1", 1)

	entry, err := f.svc.TryJoin(ctx, "g1", JoinInput{Identity: models.AnonymousIdentity("device"), AcceptedTerms: true})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
}

// stallingRepository holds the insert of one identity until released.
type stallingRepository struct {
	repository.Repository
	identity models.Identity
	reached  chan struct{}
	release  chan struct{}
}

func (r *stallingRepository) CreateEntry(ctx context.Context, entry *models.Entry) error {
	if entry.Identity == r.identity {
		close(r.reached)
		<-r.release
	}
	return r.Repository.CreateEntry(ctx, entry)
}

func TestJoinInFlightDuringDrawIsRefused(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.seedGiveaway(t, "g1", 2)
	f.join(t, "g1", 3)

	stalled := &stallingRepository{
		Repository: f.repo,
		identity:   models.UserIdentity("late"),
		reached:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	f.svc = NewGiveawayService(stalled, f.locker, f.publisher, Options{Now: f.clock.Now}, nil)

	joinErr := make(chan error, 1)
	go func() {
		_, err := f.svc.TryJoin(ctx, "g1", JoinInput{Identity: models.UserIdentity("late"), AcceptedTerms: true})
		joinErr <- err
	}()
	<-stalled.reached

	f.clock.Advance(time.Second)
	drawn, err := f.svc.Draw(ctx, "g1")
	require.NoError(t, err)
	close(stalled.release)

	assertCode(t, <-joinErr, apperrors.ErrCodeGiveawayClosed)

	count, err := f.svc.Count(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 3, drawn.InputSize)

	report, err := f.svc.Verify(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, report.Valid, report.Reason)
}

func TestDrawWithPositionSelector(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, func(o *Options) { o.Selector = positionSelector{} })
	f.seedGiveaway(t, "g1", 2)
	ids := f.join(t, "g1", 5)
	require.Equal(t, []string{"e0", "e1", "e2", "e3", "e4"}, ids)

	result, err := f.svc.Draw(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"e0", "e2"}, result.Winners)
	assert.Equal(t, 5, result.InputSize)
	assert.Len(t, result.Seed, 64)

	g, err := f.svc.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusClosed, g.Status)

	// pool is [e1 e3 e4]; position 1 picks index 1
	rerolled, err := f.svc.Reroll(ctx, "g1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"e0", "e3"}, rerolled.Winners)
	assert.Equal(t, result.Proofs[0], rerolled.Proofs[0])
	assert.Equal(t, models.ProofKindReroll, rerolled.Proofs[1].Kind)
	assert.Equal(t, "e2", rerolled.Proofs[1].Replaced)
	assert.Equal(t, 3, rerolled.Proofs[1].InputSize)
	assert.Equal(t, result.Seed, rerolled.Seed)
	assert.Equal(t, result.InputHash, rerolled.InputHash)
	assert.NotEqual(t, result.Seed, rerolled.Proofs[1].Seed)
}

func TestDrawIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.seedGiveaway(t, "g1", 3)
	f.join(t, "g1", 10)

	first, err := f.svc.Draw(ctx, "g1")
	require.NoError(t, err)
	second, err := f.svc.Draw(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = f.svc.TryJoin(ctx, "g1", JoinInput{Identity: models.UserIdentity("late"), AcceptedTerms: true})
	assertCode(t, err, apperrors.ErrCodeGiveawayClosed)
}

func TestConcurrentDrawsAgree(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.seedGiveaway(t, "g1", 4)
	f.join(t, "g1", 20)

	results := make([]*DrawResult, 16)
	var wg conc.WaitGroup
	for i := range results {
		wg.Go(func() {
			r, err := f.svc.Draw(ctx, "g1")
			if assert.NoError(t, err) {
				results[i] = r
			}
		})
	}
	wg.Wait()

	for _, r := range results[1:] {
		require.NotNil(t, r)
		assert.Equal(t, results[0].Seed, r.Seed)
		assert.Equal(t, results[0].Winners, r.Winners)
	}
}

func TestDrawEdgeCases(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	f.seedGiveaway(t, "empty", 3)
	result, err := f.svc.Draw(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, result.Winners)
	assert.False(t, result.DrawAt.IsZero())

	f.seedGiveaway(t, "small", 10)
	ids := f.join(t, "small", 3)
	result, err = f.svc.Draw(ctx, "small")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, result.Winners)

	f.seedGiveaway(t, "draft", 1, func(g *models.Giveaway) { g.Status = models.GiveawayStatusDraft })
	_, err = f.svc.Draw(ctx, "draft")
	assertCode(t, err, apperrors.ErrCodeValidation)

	f.seedGiveaway(t, "cancelled", 1, func(g *models.Giveaway) { g.Status = models.GiveawayStatusCancelled })
	_, err = f.svc.Draw(ctx, "cancelled")
	assertCode(t, err, apperrors.ErrCodeValidation)

	_, err = f.svc.Draw(ctx, "missing")
	assertCode(t, err, apperrors.ErrCodeGiveawayNotFound)
}

func TestDrawSkipsDisqualifiedEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.seedGiveaway(t, "g1", 5)
	ids := f.join(t, "g1", 4)
	require.NoError(t, f.svc.Disqualify(ctx, "g1", ids[2]))
	f.clock.Advance(time.Second)

	result, err := f.svc.Draw(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 3, result.InputSize)
	assert.NotContains(t, result.Winners, ids[2])
}

func TestRerollErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.seedGiveaway(t, "g1", 2)
	f.join(t, "g1", 2)

	_, err := f.svc.Reroll(ctx, "g1", 0)
	assertCode(t, err, apperrors.ErrCodeValidation)

	_, err = f.svc.Draw(ctx, "g1")
	require.NoError(t, err)

	_, err = f.svc.Reroll(ctx, "g1", -1)
	assertCode(t, err, apperrors.ErrCodeValidation)
	_, err = f.svc.Reroll(ctx, "g1", 2)
	assertCode(t, err, apperrors.ErrCodeValidation)

	_, err = f.svc.Reroll(ctx, "g1", 1)
	assertCode(t, err, apperrors.ErrCodeNoAlternativeCandidates)
}

func TestRerollTouchesOnlyItsPosition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.seedGiveaway(t, "g1", 3)
	f.join(t, "g1", 8)

	drawn, err := f.svc.Draw(ctx, "g1")
	require.NoError(t, err)

	current := drawn
	for i := 0; i < 5; i++ {
		f.clock.Advance(time.Second)
		next, err := f.svc.Reroll(ctx, "g1", 1)
		require.NoError(t, err)

		assert.Equal(t, current.Winners[0], next.Winners[0])
		assert.Equal(t, current.Winners[2], next.Winners[2])
		assert.Equal(t, current.Proofs[0], next.Proofs[0])
		assert.Equal(t, current.Proofs[2], next.Proofs[2])
		assert.NotContains(t, []string{next.Winners[0], next.Winners[2], current.Winners[1]}, next.Winners[1])
		assert.Equal(t, drawn.Seed, next.Seed)
		assert.Equal(t, drawn.InputHash, next.InputHash)
		current = next
	}
}

func TestGetWinners(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.seedGiveaway(t, "g1", 2)
	f.join(t, "g1", 4)

	winners, err := f.svc.GetWinners(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, winners)

	drawn, err := f.svc.Draw(ctx, "g1")
	require.NoError(t, err)

	winners, err = f.svc.GetWinners(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, winners, 2)
	for i, w := range winners {
		assert.Equal(t, i, w.Position)
		require.NotNil(t, w.Entry)
		assert.Equal(t, drawn.Winners[i], w.Entry.ID)
		assert.Equal(t, models.IdentityAnonymous, w.Entry.Identity.Kind)
		assert.Equal(t, drawn.Proofs[i], w.Proof)
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	f.seedGiveaway(t, "g1", 2)
	f.join(t, "g1", 6)

	_, err := f.svc.Verify(ctx, "g1")
	assertCode(t, err, apperrors.ErrCodeValidation)

	drawn, err := f.svc.Draw(ctx, "g1")
	require.NoError(t, err)

	report, err := f.svc.Verify(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, report.Valid, report.Reason)
	require.Len(t, report.Checks, 2)
	for _, c := range report.Checks {
		assert.True(t, c.Checked)
		assert.True(t, c.Valid)
	}

	// a winner disqualified after the draw does not break the original proofs
	require.NoError(t, f.svc.Disqualify(ctx, "g1", drawn.Winners[0]))
	f.clock.Advance(time.Second)
	_, err = f.svc.Reroll(ctx, "g1", 0)
	require.NoError(t, err)

	report, err = f.svc.Verify(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, report.Valid, report.Reason)
	assert.Equal(t, models.ProofKindReroll, report.Checks[0].Kind)
	assert.True(t, report.Checks[0].Checked)
	assert.True(t, report.Checks[0].Valid)
	assert.True(t, report.Checks[1].Valid)

	// tamper with the stored draw position
	g, err := f.repo.GetByID(ctx, "g1")
	require.NoError(t, err)
	for _, id := range []string{"e0", "e1", "e2", "e3", "e4", "e5"} {
		if id != g.Draw.Winners[0] && id != g.Draw.Winners[1] {
			g.Draw.Winners[1] = id
			g.Draw.Proofs[1].EntryID = id
			break
		}
	}
	require.NoError(t, f.repo.SaveReroll(ctx, g, g.Version))

	report, err = f.svc.Verify(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.False(t, report.Checks[1].Valid)
}

type jsonCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (c *jsonCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *jsonCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	c.sets++
	return nil
}

func (c *jsonCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func TestVerifyIsCachedPerVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reports := &jsonCache{data: map[string][]byte{}}
	f := newFixture(t, func(o *Options) { o.Cache = reports })
	f.seedGiveaway(t, "g1", 2)
	f.join(t, "g1", 5)

	_, err := f.svc.Draw(ctx, "g1")
	require.NoError(t, err)

	first, err := f.svc.Verify(ctx, "g1")
	require.NoError(t, err)
	second, err := f.svc.Verify(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, reports.sets)
	assert.Equal(t, first.Checks, second.Checks)
	assert.True(t, second.Valid)

	f.clock.Advance(time.Second)
	_, err = f.svc.Reroll(ctx, "g1", 0)
	require.NoError(t, err)
	third, err := f.svc.Verify(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, reports.sets)
	assert.Equal(t, models.ProofKindReroll, third.Checks[0].Kind)
}
