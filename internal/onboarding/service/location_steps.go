package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"stoop/internal/audit"
	"stoop/internal/geo"
	"stoop/internal/onboarding/models"
	id "stoop/pkg/domain"
	dErrors "stoop/pkg/domain-errors"
	"stoop/pkg/requestcontext"
)

// SetAddress stores the canonical address. A selected suggestion carries its
// coordinates and skips the resolver; free text is resolved exactly once.
func (s *Service) SetAddress(ctx context.Context, accountID id.AccountID, cmd models.SetAddress) (models.AddressResult, error) {
	text, selected, err := models.NormalizeAddress(cmd.Address, cmd.Lat, cmd.Lng)
	if err != nil {
		return models.AddressResult{}, err
	}
	if _, err := s.load(ctx, accountID, models.ActionSetAddress); err != nil {
		return models.AddressResult{}, err
	}

	addr := models.Address{Text: text}
	if selected {
		addr.Lat, addr.Lng = *cmd.Lat, *cmd.Lng
	} else {
		candidate, err := s.resolver.Resolve(ctx, text)
		if err != nil {
			if dErrors.CodeOf(err) == dErrors.CodeInternal {
				return models.AddressResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve address")
			}
			return models.AddressResult{}, err
		}
		addr.Lat, addr.Lng, addr.Geocoded = candidate.Lat, candidate.Lng, true
	}

	now := requestcontext.Now(ctx)
	acc, err := s.advance(ctx, accountID, models.ActionSetAddress,
		func(a *models.Account) error { return a.CanSetAddress() },
		func(a *models.Account) { a.ApplyAddress(addr, now) },
	)
	if err != nil {
		return models.AddressResult{}, err
	}
	return models.AddressResult{
		Address:    addr.Text,
		Lat:        addr.Lat,
		Lng:        addr.Lng,
		Geocoded:   addr.Geocoded,
		Phase:      acc.Phase,
		NextAction: acc.Phase.NextAction(),
	}, nil
}

// CompleteVerification is the final gate: the capture must have passed and
// lie within the configured radius of the stored address. A rejected capture
// is recorded on the account and the phase stays at selfie.
func (s *Service) CompleteVerification(ctx context.Context, accountID id.AccountID, cmd models.CompleteVerification) (models.VerificationOutcome, error) {
	now := requestcontext.Now(ctx)
	result, err := cmd.VerificationResult.CheckCapture(now, s.captureMaxAge, s.captureFutureSkew)
	if err != nil {
		return models.VerificationOutcome{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	defer cancel()

	var (
		distance float64
		rejected bool
	)
	acc, err := s.accounts.Execute(ctx, accountID,
		func(a *models.Account) error {
			if err := a.CanCompleteVerification(); err != nil {
				return err
			}
			distance = 0
			if geo.ValidCoordinates(result.Lat, result.Lng) {
				distance = geo.DistanceMeters(a.Address.Lat, a.Address.Lng, result.Lat, result.Lng)
			}
			rejected = !result.Passed || distance > s.maxDistanceMeters
			return nil
		},
		func(a *models.Account) {
			if rejected {
				a.ApplyVerificationFailure(distance, now)
				return
			}
			a.ApplyVerified(result, distance, now)
		},
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.VerificationOutcome{}, dErrors.Wrap(err, dErrors.CodeTimeout, "verification timed out")
		}
		return models.VerificationOutcome{}, s.stepError(ctx, accountID, models.ActionCompleteVerification, err)
	}
	s.metrics.ObserveDistance(distance)

	if rejected {
		return models.VerificationOutcome{}, s.rejectLocation(ctx, acc, result.Passed, distance)
	}

	s.metrics.IncCompleted(string(acc.Kind))
	s.logger.InfoContext(ctx, "onboarding completed",
		"account_id", acc.ID.String(),
		"kind", acc.Kind,
		"distance_m", distance,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Category:  audit.CategoryOperations,
		Action:    audit.ActionOnboardingCompleted,
		AccountID: acc.ID.String(),
		Email:     acc.Email,
		Phase:     string(acc.Phase),
	})
	return models.VerificationOutcome{Verified: true, DistanceMeters: distance, Phase: acc.Phase}, nil
}

func (s *Service) rejectLocation(ctx context.Context, acc *models.Account, passed bool, distance float64) error {
	reason := fmt.Sprintf("capture %.0fm from address, limit %.0fm", distance, s.maxDistanceMeters)
	if !passed {
		reason = "identity check did not pass"
	}
	s.logger.WarnContext(ctx, "verification location mismatch",
		"account_id", acc.ID.String(),
		"passed", passed,
		"distance_m", distance,
		"failures", acc.Verification.Failures,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.metrics.IncLocationMismatch()
	s.emit(ctx, audit.Event{
		Category:  audit.CategorySecurity,
		Action:    audit.ActionLocationMismatch,
		AccountID: acc.ID.String(),
		Email:     acc.Email,
		Phase:     string(acc.Phase),
		Reason:    reason,
		Attributes: map[string]string{
			"passed":     strconv.FormatBool(passed),
			"distance_m": strconv.FormatFloat(distance, 'f', 1, 64),
			"failures":   strconv.Itoa(acc.Verification.Failures),
		},
	})
	return dErrors.New(dErrors.CodeLocationMismatch, "verification failed; make sure you are at your address and try again")
}
