package models

import (
	"errors"
	"time"
)

var ErrEmptyIdentity = errors.New("identity is required")

// IdentityKind discriminates authenticated users from anonymous clients
type IdentityKind string

const (
	IdentityUser      IdentityKind = "user"
	IdentityAnonymous IdentityKind = "anonymous"
)

// Identity is who is entering a giveaway. Two identities are the same only
// when both Kind and Value match.
type Identity struct {
	Kind  IdentityKind `json:"kind"`
	Value string       `json:"value"`
}

func UserIdentity(userID string) Identity {
	return Identity{Kind: IdentityUser, Value: userID}
}

func AnonymousIdentity(anonID string) Identity {
	return Identity{Kind: IdentityAnonymous, Value: anonID}
}

func (i Identity) IsUser() bool {
	return i.Kind == IdentityUser && i.Value != ""
}

func (i Identity) IsZero() bool {
	return i.Value == ""
}

func (i Identity) Validate() error {
	if i.Value == "" || (i.Kind != IdentityUser && i.Kind != IdentityAnonymous) {
		return ErrEmptyIdentity
	}
	return nil
}

// UserID returns the authenticated user id, or nil for anonymous identities.
func (i Identity) UserID() *string {
	if i.Kind != IdentityUser {
		return nil
	}
	v := i.Value
	return &v
}

// AnonID returns the anonymous client id, or nil for users.
func (i Identity) AnonID() *string {
	if i.Kind != IdentityAnonymous {
		return nil
	}
	v := i.Value
	return &v
}

// Entry is one participation record in a giveaway
type Entry struct {
	ID                string        `json:"id"`
	GiveawayID        string        `json:"giveaway_id"`
	Identity          Identity      `json:"identity"`
	DeviceFingerprint *string       `json:"device_fingerprint,omitempty"`
	Confirmations     Confirmations `json:"confirmations"`
	Disqualified      bool          `json:"disqualified"`
	DisqualifiedAt    *time.Time    `json:"disqualified_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

// EligibleAt reports whether the entry counted as a candidate at instant at.
func (e *Entry) EligibleAt(at time.Time) bool {
	if e.CreatedAt.After(at) {
		return false
	}
	if !e.Disqualified {
		return true
	}
	return e.DisqualifiedAt != nil && e.DisqualifiedAt.After(at)
}
