package service

import (
	"context"

	"stoop/internal/onboarding/models"
	id "stoop/pkg/domain"
	dErrors "stoop/pkg/domain-errors"
	"stoop/pkg/requestcontext"
)

func (s *Service) SetAccountType(ctx context.Context, accountID id.AccountID, cmd models.SetAccountType) (models.StepResult, error) {
	kind, err := models.ParseKind(string(cmd.Kind))
	if err != nil {
		return models.StepResult{}, dErrors.New(dErrors.CodeValidation, "kind must be personal or business")
	}
	now := requestcontext.Now(ctx)
	acc, err := s.advance(ctx, accountID, models.ActionSetAccountType,
		func(a *models.Account) error { return a.CanSetKind() },
		func(a *models.Account) { a.ApplyKind(kind, now) },
	)
	if err != nil {
		return models.StepResult{}, err
	}
	return models.NewStepResult(acc.Phase), nil
}

func (s *Service) SetName(ctx context.Context, accountID id.AccountID, cmd models.SetName) (models.StepResult, error) {
	name, err := models.NormalizeName(cmd.Name)
	if err != nil {
		return models.StepResult{}, err
	}
	now := requestcontext.Now(ctx)
	acc, err := s.advance(ctx, accountID, models.ActionSetName,
		func(a *models.Account) error { return a.CanSetName() },
		func(a *models.Account) { a.ApplyName(name, now) },
	)
	if err != nil {
		return models.StepResult{}, err
	}
	return models.NewStepResult(acc.Phase), nil
}

func (s *Service) SetBusiness(ctx context.Context, accountID id.AccountID, cmd models.SetBusiness) (models.StepResult, error) {
	profile, err := cmd.BusinessProfile.Normalize()
	if err != nil {
		return models.StepResult{}, err
	}
	now := requestcontext.Now(ctx)
	acc, err := s.advance(ctx, accountID, models.ActionSetBusiness,
		func(a *models.Account) error { return a.CanSetBusiness() },
		func(a *models.Account) { a.ApplyBusiness(profile, now) },
	)
	if err != nil {
		return models.StepResult{}, err
	}
	return models.NewStepResult(acc.Phase), nil
}

// SetPin hashes before taking the account lock; the phase is checked both
// before hashing and again under the lock, so of two concurrent requests only
// one succeeds.
func (s *Service) SetPin(ctx context.Context, accountID id.AccountID, cmd models.SetPin) (models.PinResult, error) {
	if err := models.ValidatePin(cmd.Pin); err != nil {
		return models.PinResult{}, err
	}
	if _, err := s.load(ctx, accountID, models.ActionSetPin); err != nil {
		return models.PinResult{}, err
	}
	hash, err := s.pins.Hash(cmd.Pin)
	if err != nil {
		return models.PinResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to secure pin")
	}
	now := requestcontext.Now(ctx)
	acc, err := s.advance(ctx, accountID, models.ActionSetPin,
		func(a *models.Account) error { return a.CanSetPin() },
		func(a *models.Account) { a.ApplyPin(hash, now) },
	)
	if err != nil {
		return models.PinResult{}, err
	}
	return models.PinResult{PinSet: true, Phase: acc.Phase, NextAction: acc.Phase.NextAction()}, nil
}

// load fetches the account and checks it is at the phase the action needs.
// Used ahead of slow work; Execute repeats the check under the lock.
func (s *Service) load(ctx context.Context, accountID id.AccountID, action models.Action) (*models.Account, error) {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, s.stepError(ctx, accountID, action, err)
	}
	if err := acc.ExpectPhase(action.Phase()); err != nil {
		return nil, s.stepError(ctx, accountID, action, err)
	}
	return acc, nil
}

// advance applies one transition atomically through the store.
func (s *Service) advance(ctx context.Context, accountID id.AccountID, action models.Action, validate func(*models.Account) error, mutate func(*models.Account)) (*models.Account, error) {
	acc, err := s.accounts.Execute(ctx, accountID, validate, mutate)
	if err != nil {
		return nil, s.stepError(ctx, accountID, action, err)
	}
	s.logger.InfoContext(ctx, "onboarding step completed",
		"account_id", accountID.String(),
		"action", action,
		"phase", acc.Phase,
		"request_id", requestcontext.RequestID(ctx),
	)
	return acc, nil
}
