package mapper

import (
	"time"

	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/fairdraw"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/models/dto"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/service"
)

// ToGiveawayResponse maps a Giveaway onto its public projection as seen at now
func ToGiveawayResponse(g *models.Giveaway, entryCount int, now time.Time) *dto.GiveawayResponse {
	resp := &dto.GiveawayResponse{
		ID:           g.ID,
		Title:        g.Title,
		Description:  g.Description,
		Requirements: g.Requirements,
		MaxWinners:   g.MaxWinners,
		Status:       g.Status,
		IsOpen:       g.IsOpen(now),
		StartAt:      g.StartAt,
		EndAt:        g.EndAt,
		DurationS:    g.DurationS,
		SecondsLeft:  g.SecondsLeft(now),
		EntryCount:   entryCount,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}

	if g.Drawn() {
		resp.Draw = &dto.CommitResponse{
			Seed:      g.Draw.Seed,
			InputHash: g.Draw.InputHash,
			InputSize: g.Draw.InputSize,
			DrawAt:    *g.Draw.DrawAt,
		}
	}
	return resp
}

func ToProofResponse(p models.WinnerProof) dto.ProofResponse {
	return dto.ProofResponse{
		Kind:      p.Kind,
		Seed:      p.Seed,
		InputHash: p.InputHash,
		InputSize: p.InputSize,
		At:        p.At,
		Replaced:  p.Replaced,
	}
}

// ToWinnersResponse denormalizes the winning entries. Anonymous ids stay
// private; only user ids are exposed.
func ToWinnersResponse(giveawayID string, winners []service.Winner) *dto.WinnersResponse {
	resp := &dto.WinnersResponse{
		GiveawayID: giveawayID,
		Drawn:      len(winners) > 0,
		Winners:    make([]dto.WinnerResponse, 0, len(winners)),
	}

	for _, w := range winners {
		item := dto.WinnerResponse{
			Position: w.Position,
			EntryID:  w.Proof.EntryID,
			Proof:    ToProofResponse(w.Proof),
		}
		if w.Entry != nil {
			item.EntryID = w.Entry.ID
			item.IdentityKind = w.Entry.Identity.Kind
			item.UserID = w.Entry.Identity.UserID()
			item.Disqualified = w.Entry.Disqualified
		}
		resp.Winners = append(resp.Winners, item)
	}
	return resp
}

func ToDrawResponse(r *service.DrawResult) *dto.DrawResponse {
	proofs := make([]dto.ProofResponse, len(r.Proofs))
	for i, p := range r.Proofs {
		proofs[i] = ToProofResponse(p)
	}

	winners := make([]string, len(r.Winners))
	copy(winners, r.Winners)

	return &dto.DrawResponse{
		GiveawayID: r.GiveawayID,
		Commit: dto.CommitResponse{
			Seed:      r.Seed,
			InputHash: r.InputHash,
			InputSize: r.InputSize,
			DrawAt:    r.DrawAt,
		},
		Winners: winners,
		Proofs:  proofs,
	}
}

func ToVerifyResponse(r *service.VerifyResult) *dto.VerifyResponse {
	checks := r.Checks
	if checks == nil {
		checks = []fairdraw.Check{}
	}
	return &dto.VerifyResponse{
		GiveawayID: r.GiveawayID,
		Commit: dto.CommitResponse{
			Seed:      r.Seed,
			InputHash: r.InputHash,
			InputSize: r.InputSize,
			DrawAt:    r.DrawAt,
		},
		Valid:  r.Valid,
		Reason: r.Reason,
		Checks: checks,
	}
}

func ToCreateInput(req *dto.CreateGiveawayRequest) service.CreateInput {
	return service.CreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Requirements: req.Requirements,
		MaxWinners:   req.MaxWinners,
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
		DurationS:    req.DurationS,
	}
}

func ToJoinInput(req *dto.JoinRequest, identity models.Identity) service.JoinInput {
	return service.JoinInput{
		Identity:      identity,
		AcceptedTerms: req.AcceptTerms,
		Confirmations: models.Confirmations{
			PhotoUsageConsent: req.FinalConfirmations.PhotoUsageConsent,
			ProfilePublic:     req.FinalConfirmations.ProfilePublic,
		},
		DeviceFingerprint: req.DeviceFingerprint,
	}
}
