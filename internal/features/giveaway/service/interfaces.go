package service

import (
	"context"
	"time"

	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/fairdraw"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
)

// GiveawayService defines the interface for giveaway operations
type GiveawayService interface {
	Create(ctx context.Context, input CreateInput) (*models.Giveaway, error)
	Get(ctx context.Context, giveawayID string) (*models.Giveaway, error)
	UpdateStatus(ctx context.Context, giveawayID string, status models.GiveawayStatus) (*models.Giveaway, error)

	TryJoin(ctx context.Context, giveawayID string, input JoinInput) (*models.Entry, error)
	Count(ctx context.Context, giveawayID string) (int, error)
	IsRegistered(ctx context.Context, giveawayID string, identity models.Identity) (bool, error)
	Disqualify(ctx context.Context, giveawayID, entryID string) error

	Draw(ctx context.Context, giveawayID string) (*DrawResult, error)
	Reroll(ctx context.Context, giveawayID string, position int) (*DrawResult, error)
	GetWinners(ctx context.Context, giveawayID string) ([]Winner, error)
	Verify(ctx context.Context, giveawayID string) (*VerifyResult, error)
}

// CountPublisher pushes the entry count of a giveaway to its subscribers.
// Implementations must not block the caller.
type CountPublisher interface {
	PublishCount(giveawayID string, count int)
}

type CreateInput struct {
	Title        string
	Description  string
	Requirements models.Requirements
	MaxWinners   int
	StartAt      *time.Time
	EndAt        *time.Time
	DurationS    *int64
}

type JoinInput struct {
	Identity          models.Identity
	AcceptedTerms     bool
	Confirmations     models.Confirmations
	DeviceFingerprint *string
}

// DrawResult is the published outcome of a draw, updated by rerolls.
type DrawResult struct {
	GiveawayID string
	Seed       string
	InputHash  string
	InputSize  int
	DrawAt     time.Time
	Winners    []string
	Proofs     []models.WinnerProof
}

// Winner is one winning position with its entry denormalized. Entry is nil
// if the entry can no longer be loaded.
type Winner struct {
	Position int
	Entry    *models.Entry
	Proof    models.WinnerProof
}

// VerifyResult is a recomputation of the draw from persisted data.
type VerifyResult struct {
	GiveawayID string
	Seed       string
	InputHash  string
	InputSize  int
	DrawAt     time.Time
	Valid      bool
	Reason     string
	Checks     []fairdraw.Check
}
