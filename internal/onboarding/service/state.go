package service

import (
	"context"

	"stoop/internal/onboarding/models"
	id "stoop/pkg/domain"
	"stoop/pkg/email"
)

// State returns the account's phase so a client can resume, plus the target
// the identity verifier checks a capture against once the address is set.
func (s *Service) State(ctx context.Context, accountID id.AccountID) (models.State, error) {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return models.State{}, s.stepError(ctx, accountID, "", err)
	}
	st := models.State{
		UserID:      acc.ID.String(),
		Email:       acc.Email,
		Kind:        acc.Kind,
		DisplayName: acc.DisplayName,
		Phase:       acc.Phase,
		NextAction:  acc.Phase.NextAction(),
		HasPin:      acc.HasPin(),
	}
	if acc.DisplayName == "" {
		st.SuggestedName = email.SuggestedName(acc.Email)
	}
	if acc.Phase == models.PhaseSelfie && acc.Address != nil {
		st.Target = &models.VerificationTarget{
			Address:           acc.Address.Text,
			Lat:               acc.Address.Lat,
			Lng:               acc.Address.Lng,
			MaxDistanceMeters: s.maxDistanceMeters,
		}
	}
	return st, nil
}
