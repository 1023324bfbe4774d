package service

import (
	"context"
	"errors"

	"stoop/internal/audit"
	"stoop/internal/onboarding/models"
	id "stoop/pkg/domain"
	dErrors "stoop/pkg/domain-errors"
	"stoop/pkg/platform/sentinel"
	"stoop/pkg/requestcontext"
)

// stepError translates store and model failures into the domain errors the
// gateway renders. Out-of-order commands are logged and audited as possible
// tampering before being returned.
func (s *Service) stepError(ctx context.Context, accountID id.AccountID, action models.Action, err error) error {
	var phaseErr *models.PhaseError
	switch {
	case errors.As(err, &phaseErr):
		s.rejectOutOfOrder(ctx, accountID, action, phaseErr)
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeUnauthorized, "account not found; start onboarding again")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "onboarding step timed out")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		s.logger.ErrorContext(ctx, "onboarding step failed",
			"error", err,
			"action", action,
			"account_id", accountID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update account")
	}
}

func (s *Service) rejectOutOfOrder(ctx context.Context, accountID id.AccountID, action models.Action, pe *models.PhaseError) {
	s.logger.WarnContext(ctx, "out of order onboarding transition",
		"account_id", accountID.String(),
		"action", action,
		"phase", pe.Current,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncOutOfOrder(string(action), string(pe.Current))
	s.emit(ctx, audit.Event{
		Category:  audit.CategorySecurity,
		Action:    audit.ActionOutOfOrderTransition,
		AccountID: accountID.String(),
		Phase:     string(pe.Current),
		Reason:    "command " + string(action) + " needs phase " + string(pe.Attempted),
	})
}
