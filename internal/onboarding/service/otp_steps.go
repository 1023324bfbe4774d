package service

import (
	"context"
	"errors"
	"strings"

	"stoop/internal/audit"
	"stoop/internal/onboarding/models"
	id "stoop/pkg/domain"
	dErrors "stoop/pkg/domain-errors"
	"stoop/pkg/email"
	"stoop/pkg/platform/sentinel"
	"stoop/pkg/requestcontext"
)

// SendOTP issues a fresh code for the email, creating the pending account on
// first contact. It is accepted at any phase and never changes the phase.
func (s *Service) SendOTP(ctx context.Context, cmd models.SendOTP) (models.SendOTPResult, error) {
	addr, err := email.Normalize(cmd.Email)
	if err != nil {
		return models.SendOTPResult{}, err
	}
	if err := s.checkSendLimit(ctx, addr); err != nil {
		return models.SendOTPResult{}, err
	}
	if _, err := s.ensureAccount(ctx, addr); err != nil {
		return models.SendOTPResult{}, err
	}
	if err := s.otp.Send(ctx, addr); err != nil {
		s.logger.WarnContext(ctx, "otp dispatch failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return models.SendOTPResult{}, err
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Action:   audit.ActionOTPSent,
		Email:    addr,
	})
	return models.SendOTPResult{Sent: true}, nil
}

func (s *Service) checkSendLimit(ctx context.Context, addr string) error {
	if s.sendLimiter == nil {
		return nil
	}
	keys := []string{sendLimitEmailKey(addr)}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		keys = append(keys, "ip:"+ip)
	}
	if err := s.sendLimiter.Check(ctx, keys...); err != nil {
		s.logger.WarnContext(ctx, "otp send rate limited",
			"request_id", requestcontext.RequestID(ctx),
		)
		return err
	}
	return nil
}

// releaseSendLimit restarts the email's send window once ownership is
// proven. The per-IP window is left alone.
func (s *Service) releaseSendLimit(ctx context.Context, addr string) {
	if s.sendLimiter == nil {
		return
	}
	if err := s.sendLimiter.Reset(ctx, sendLimitEmailKey(addr)); err != nil {
		s.logger.WarnContext(ctx, "failed to reset otp send window",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func sendLimitEmailKey(addr string) string {
	return "email:" + addr
}

// VerifyOTP checks the code, confirms the email and returns the onboarding
// token. Accounts already past the OTP step keep their phase.
func (s *Service) VerifyOTP(ctx context.Context, cmd models.VerifyOTP) (models.VerifyOTPResult, error) {
	addr, err := email.Normalize(cmd.Email)
	if err != nil {
		return models.VerifyOTPResult{}, err
	}
	code := strings.TrimSpace(cmd.Code)
	if code == "" {
		return models.VerifyOTPResult{}, dErrors.New(dErrors.CodeValidation, "code is required")
	}

	if err := s.otp.Verify(ctx, addr, code); err != nil {
		if dErrors.HasCode(err, dErrors.CodeOTPLocked) {
			s.logger.WarnContext(ctx, "otp verification locked",
				"request_id", requestcontext.RequestID(ctx),
			)
			s.emit(ctx, audit.Event{
				Category: audit.CategorySecurity,
				Action:   audit.ActionOTPLocked,
				Email:    addr,
				Reason:   "too many incorrect codes",
			})
		}
		return models.VerifyOTPResult{}, err
	}
	s.releaseSendLimit(ctx, addr)

	pending, err := s.ensureAccount(ctx, addr)
	if err != nil {
		return models.VerifyOTPResult{}, err
	}
	now := requestcontext.Now(ctx)
	acc, err := s.accounts.Execute(ctx, pending.ID,
		func(*models.Account) error { return nil },
		func(a *models.Account) { a.ApplyEmailConfirmed(now) },
	)
	if err != nil {
		return models.VerifyOTPResult{}, s.stepError(ctx, pending.ID, models.ActionVerifyOTP, err)
	}

	token, expiresAt, err := s.tokens.Issue(acc.ID, acc.Email)
	if err != nil {
		return models.VerifyOTPResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue onboarding token")
	}

	s.logger.InfoContext(ctx, "email confirmed",
		"account_id", acc.ID.String(),
		"phase", acc.Phase,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Category:  audit.CategoryOperations,
		Action:    audit.ActionEmailConfirmed,
		AccountID: acc.ID.String(),
		Email:     acc.Email,
		Phase:     string(acc.Phase),
	})

	return models.VerifyOTPResult{
		Verified:       true,
		UserID:         acc.ID.String(),
		HasPin:         acc.HasPin(),
		Phase:          acc.Phase,
		NextAction:     acc.Phase.NextAction(),
		Token:          token,
		TokenExpiresAt: expiresAt,
	}, nil
}

// ensureAccount loads the account for addr or creates the pending record. A
// concurrent creation for the same email is resolved by loading the winner.
func (s *Service) ensureAccount(ctx context.Context, addr string) (*models.Account, error) {
	acc, err := s.accounts.FindByEmail(ctx, addr)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	acc, err = models.NewPendingAccount(id.NewAccountID(), addr, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			existing, findErr := s.accounts.FindByEmail(ctx, addr)
			if findErr != nil {
				return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load account")
			}
			return existing, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}
	s.logger.InfoContext(ctx, "pending account created",
		"account_id", acc.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return acc, nil
}
