package models

// Requirements are the participation flags of a giveaway. Only MustBeLoggedIn
// is enforced server side; the consent flags are returned to the client and
// recorded on each entry as Confirmations.
type Requirements struct {
	MustBeLoggedIn           bool `json:"must_be_logged_in"`
	RequirePhotoUsageConsent bool `json:"require_photo_usage_consent"`
	RequireProfilePublic     bool `json:"require_profile_public"`
}

// Confirmations is what an entrant declared at join time.
type Confirmations struct {
	PhotoUsageConsent bool `json:"photo_usage_consent"`
	ProfilePublic     bool `json:"profile_public"`
}

// CheckJoinRequirements rejects anonymous identities when login is required.
func (g *Giveaway) CheckJoinRequirements(identity Identity) error {
	if g.Requirements.MustBeLoggedIn && !identity.IsUser() {
		return ErrLoginRequired
	}
	return nil
}
