package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrInt(v int64) *int64           { return &v }

func windowGiveaway(status GiveawayStatus, end time.Time) *Giveaway {
	return &Giveaway{
		ID:         "g1",
		MaxWinners: 1,
		Status:     status,
		StartAt:    ptrTime(end.Add(-24 * time.Hour)),
		EndAt:      ptrTime(end),
	}
}

func countdownGiveaway(status GiveawayStatus, start time.Time, remaining *int64) *Giveaway {
	return &Giveaway{
		ID:         "g1",
		MaxWinners: 1,
		Status:     status,
		StartAt:    ptrTime(start),
		DurationS:  ptrInt(3600),
		RemainingS: remaining,
	}
}

func TestIsOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		giveaway *Giveaway
		want     bool
	}{
		{"window before end", windowGiveaway(GiveawayStatusActive, now.Add(time.Minute)), true},
		{"window at end", windowGiveaway(GiveawayStatusActive, now), false},
		{"window after end", windowGiveaway(GiveawayStatusActive, now.Add(-time.Second)), false},
		{"window closed", windowGiveaway(GiveawayStatusClosed, now.Add(time.Hour)), false},
		{"window cancelled", windowGiveaway(GiveawayStatusCancelled, now.Add(time.Hour)), false},
		{"window draft", windowGiveaway(GiveawayStatusDraft, now.Add(time.Hour)), false},
		{"window paused", windowGiveaway(GiveawayStatusPaused, now.Add(time.Hour)), false},
		{"countdown running", countdownGiveaway(GiveawayStatusActive, now.Add(-10*time.Minute), ptrInt(3600)), true},
		{"countdown just expired", countdownGiveaway(GiveawayStatusActive, now.Add(-time.Hour), ptrInt(3600)), false},
		{"countdown zero remaining", countdownGiveaway(GiveawayStatusActive, now, ptrInt(0)), false},
		{"countdown negative remaining", countdownGiveaway(GiveawayStatusActive, now, ptrInt(-5)), false},
		{"countdown missing remaining", countdownGiveaway(GiveawayStatusActive, now, nil), false},
		{"countdown paused", countdownGiveaway(GiveawayStatusPaused, now, ptrInt(3600)), false},
		{"countdown draft", countdownGiveaway(GiveawayStatusDraft, now, ptrInt(3600)), false},
		{"countdown closed", countdownGiveaway(GiveawayStatusClosed, now, ptrInt(3600)), false},
		{"countdown not started", &Giveaway{Status: GiveawayStatusActive, RemainingS: ptrInt(60)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.giveaway.IsOpen(now))
		})
	}
}

func TestSecondsLeft(t *testing.T) {
	t.Parallel()

	running := countdownGiveaway(GiveawayStatusActive, now.Add(-10*time.Minute), ptrInt(3600))
	assert.Equal(t, int64(3000), running.SecondsLeft(now))

	paused := countdownGiveaway(GiveawayStatusPaused, now.Add(-48*time.Hour), ptrInt(120))
	assert.Equal(t, int64(120), paused.SecondsLeft(now))

	expired := windowGiveaway(GiveawayStatusActive, now.Add(-time.Minute))
	assert.Equal(t, int64(0), expired.SecondsLeft(now))
}

func TestTransitionCountdownPauseResume(t *testing.T) {
	t.Parallel()

	g := &Giveaway{ID: "g1", MaxWinners: 1, Status: GiveawayStatusDraft, DurationS: ptrInt(600)}
	require.NoError(t, g.Validate())

	require.NoError(t, g.Transition(GiveawayStatusActive, now))
	require.NotNil(t, g.RemainingS)
	assert.Equal(t, int64(600), *g.RemainingS)
	assert.True(t, g.IsOpen(now.Add(599*time.Second)))

	require.NoError(t, g.Transition(GiveawayStatusPaused, now.Add(200*time.Second)))
	assert.Equal(t, int64(400), *g.RemainingS)
	assert.False(t, g.IsOpen(now.Add(201*time.Second)))

	resume := now.Add(time.Hour)
	require.NoError(t, g.Transition(GiveawayStatusActive, resume))
	assert.True(t, g.IsOpen(resume.Add(399*time.Second)))
	assert.False(t, g.IsOpen(resume.Add(400*time.Second)))
}

func TestTransitionRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from GiveawayStatus
		to   GiveawayStatus
		ok   bool
	}{
		{GiveawayStatusDraft, GiveawayStatusActive, true},
		{GiveawayStatusDraft, GiveawayStatusPaused, false},
		{GiveawayStatusActive, GiveawayStatusPaused, true},
		{GiveawayStatusPaused, GiveawayStatusActive, true},
		{GiveawayStatusActive, GiveawayStatusClosed, true},
		{GiveawayStatusActive, GiveawayStatusCancelled, true},
		{GiveawayStatusClosed, GiveawayStatusActive, false},
		{GiveawayStatusCancelled, GiveawayStatusActive, false},
		{GiveawayStatusActive, GiveawayStatusActive, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			g := windowGiveaway(tt.from, now.Add(time.Hour))
			err := g.Transition(tt.to, now)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, g.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, g.Status)
			}
		})
	}
}

func TestCheckJoinRequirements(t *testing.T) {
	t.Parallel()

	g := windowGiveaway(GiveawayStatusActive, now.Add(time.Hour))
	g.Requirements.MustBeLoggedIn = true

	assert.ErrorIs(t, g.CheckJoinRequirements(AnonymousIdentity("anon-1")), ErrLoginRequired)
	assert.NoError(t, g.CheckJoinRequirements(UserIdentity("42")))

	g.Requirements.MustBeLoggedIn = false
	assert.NoError(t, g.CheckJoinRequirements(AnonymousIdentity("anon-1")))
}
