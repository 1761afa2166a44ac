package dto

import (
	"time"

	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/fairdraw"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
)

// CreateGiveawayRequest represents the request body for creating a draft giveaway.
// Exactly one of EndAt or DurationS selects the window mode.
type CreateGiveawayRequest struct {
	Title        string              `json:"title" binding:"required,max=200" example:"Community sticker pack"`
	Description  string              `json:"description" binding:"max=4000"`
	Requirements models.Requirements `json:"requirements"`
	MaxWinners   int                 `json:"maxWinners" binding:"required,min=1" example:"3"`
	StartAt      *time.Time          `json:"startAt,omitempty"`
	EndAt        *time.Time          `json:"endAt,omitempty"`
	DurationS    *int64              `json:"durationS,omitempty" binding:"omitempty,min=1" example:"86400"`
}

type FinalConfirmations struct {
	PhotoUsageConsent bool `json:"photoUsageConsent"`
	ProfilePublic     bool `json:"profilePublic"`
}

// JoinRequest represents the request body for joining a giveaway
type JoinRequest struct {
	AcceptTerms        bool               `json:"acceptTerms"`
	FinalConfirmations FinalConfirmations `json:"finalConfirmations"`
	AnonID             string             `json:"anonId,omitempty" binding:"omitempty,anonid" example:"3f1c2a7e-device"`
	DeviceFingerprint  *string            `json:"deviceFingerprint,omitempty" binding:"omitempty,max=256"`
}

type StatusRequest struct {
	Status models.GiveawayStatus `json:"status" binding:"required,oneof=draft active paused closed cancelled" example:"active"`
}

type RerollRequest struct {
	Position *int `json:"position" binding:"required,min=0" example:"0"`
}

type DisqualifyRequest struct {
	EntryID string `json:"entryId" binding:"required"`
}

// CommitResponse holds the published draw commitment
type CommitResponse struct {
	Seed      string    `json:"seed"`
	InputHash string    `json:"inputHash"`
	InputSize int       `json:"inputSize"`
	DrawAt    time.Time `json:"drawAt"`
}

// GiveawayResponse is the public projection of a giveaway
type GiveawayResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Requirements models.Requirements   `json:"requirements"`
	MaxWinners   int                   `json:"maxWinners"`
	Status       models.GiveawayStatus `json:"status"`
	IsOpen       bool                  `json:"isOpen"`
	StartAt      *time.Time            `json:"startAt,omitempty"`
	EndAt        *time.Time            `json:"endAt,omitempty"`
	DurationS    *int64                `json:"durationS,omitempty"`
	SecondsLeft  int64                 `json:"secondsLeft"`
	EntryCount   int                   `json:"entryCount"`
	Draw         *CommitResponse       `json:"draw,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

type JoinResponse struct {
	ID string `json:"id"`
}

type RegisteredResponse struct {
	Registered bool `json:"registered"`
}

type ProofResponse struct {
	Kind      models.ProofKind `json:"kind"`
	Seed      string           `json:"seed"`
	InputHash string           `json:"inputHash"`
	InputSize int              `json:"inputSize"`
	At        time.Time        `json:"at"`
	Replaced  string           `json:"replaced,omitempty"`
}

// WinnerResponse is one winning position. Identity is only the kind for
// anonymous entries, user ids are shown as-is.
type WinnerResponse struct {
	Position     int                 `json:"position"`
	EntryID      string              `json:"entryId"`
	IdentityKind models.IdentityKind `json:"identityKind,omitempty"`
	UserID       *string             `json:"userId,omitempty"`
	Disqualified bool                `json:"disqualified"`
	Proof        ProofResponse       `json:"proof"`
}

type WinnersResponse struct {
	GiveawayID string           `json:"giveawayId"`
	Drawn      bool             `json:"drawn"`
	Winners    []WinnerResponse `json:"winners"`
}

// DrawResponse is returned by the draw and reroll operations
type DrawResponse struct {
	GiveawayID string          `json:"giveawayId"`
	Commit     CommitResponse  `json:"commit"`
	Winners    []string        `json:"winners"`
	Proofs     []ProofResponse `json:"proofs"`
}

type VerifyResponse struct {
	GiveawayID string           `json:"giveawayId"`
	Commit     CommitResponse   `json:"commit"`
	Valid      bool             `json:"valid"`
	Reason     string           `json:"reason,omitempty"`
	Checks     []fairdraw.Check `json:"checks"`
}
