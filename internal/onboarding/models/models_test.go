package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stoop/internal/onboarding/models"
	id "stoop/pkg/domain"
	dErrors "stoop/pkg/domain-errors"
)

type AccountSuite struct {
	suite.Suite
	now time.Time
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountSuite))
}

func (s *AccountSuite) SetupTest() {
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (s *AccountSuite) pending() *models.Account {
	a, err := models.NewPendingAccount(id.NewAccountID(), "jane@example.com", s.now)
	s.Require().NoError(err)
	return a
}

func (s *AccountSuite) TestPendingAccount() {
	s.Run("starts at otp", func() {
		a := s.pending()
		s.Equal(models.PhaseOTP, a.Phase)
		s.False(a.HasPin())
		s.Nil(a.EmailConfirmedAt)
	})

	s.Run("rejects missing email", func() {
		_, err := models.NewPendingAccount(id.NewAccountID(), "", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects nil id", func() {
		_, err := models.NewPendingAccount(id.AccountID{}, "jane@example.com", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *AccountSuite) TestPersonalPath() {
	a := s.pending()

	a.ApplyEmailConfirmed(s.now)
	s.Equal(models.PhaseType, a.Phase)
	s.Require().NotNil(a.EmailConfirmedAt)

	s.Require().NoError(a.CanSetKind())
	a.ApplyKind(models.KindPersonal, s.now)
	s.Equal(models.PhaseName, a.Phase)

	s.Require().NoError(a.CanSetName())
	a.ApplyName("Jane", s.now)
	s.Equal(models.PhasePin, a.Phase, "personal accounts skip the business phase")

	s.Require().NoError(a.CanSetPin())
	a.ApplyPin("hash", s.now)
	s.Equal(models.PhaseAddress, a.Phase)
	s.True(a.HasPin())

	s.Require().NoError(a.CanSetAddress())
	a.ApplyAddress(models.Address{Text: "150 W 47th St", Lat: 40.7599, Lng: -73.9845}, s.now)
	s.Equal(models.PhaseSelfie, a.Phase)

	s.Require().NoError(a.CanCompleteVerification())
	a.ApplyVerificationFailure(900, s.now)
	s.Equal(models.PhaseSelfie, a.Phase)
	s.Equal(1, a.Verification.Failures)

	a.ApplyVerified(models.VerificationResult{Passed: true, Lat: 40.76, Lng: -73.98, CapturedAt: s.now}, 30, s.now)
	s.Equal(models.PhaseDone, a.Phase)
	s.True(a.IsComplete())
	s.True(a.Verification.Passed)
	s.Equal(1, a.Verification.Failures, "failures are kept for review")
}

func (s *AccountSuite) TestBusinessPath() {
	a := s.pending()
	a.ApplyEmailConfirmed(s.now)
	a.ApplyKind(models.KindBusiness, s.now)
	a.ApplyName("Jane", s.now)
	s.Equal(models.PhaseBusiness, a.Phase)

	s.Require().NoError(a.CanSetBusiness())
	a.ApplyBusiness(models.BusinessProfile{Name: "Jane's", Category: models.CategoryCafe}, s.now)
	s.Equal(models.PhasePin, a.Phase)
	s.Require().NotNil(a.Business)
}

func (s *AccountSuite) TestOutOfOrder() {
	s.Run("pin before otp is rejected", func() {
		a := s.pending()
		err := a.CanSetPin()
		s.True(dErrors.HasCode(err, dErrors.CodeOutOfOrder))
		s.Equal("please restart this step", dErrors.MessageOf(err))

		var pe *models.PhaseError
		s.Require().ErrorAs(err, &pe)
		s.Equal(models.PhaseOTP, pe.Current)
		s.Equal(models.PhasePin, pe.Attempted)
	})

	s.Run("personal account cannot set a business profile", func() {
		a := s.pending()
		a.Phase = models.PhaseBusiness
		a.Kind = models.KindPersonal
		s.True(dErrors.HasCode(a.CanSetBusiness(), dErrors.CodeInvariantViolation))
	})

	s.Run("verification needs an address", func() {
		a := s.pending()
		a.Phase = models.PhaseSelfie
		s.True(dErrors.HasCode(a.CanCompleteVerification(), dErrors.CodeInvariantViolation))
	})
}

func (s *AccountSuite) TestEmailConfirmationNeverRegresses() {
	a := s.pending()
	a.Phase = models.PhaseAddress
	a.ApplyEmailConfirmed(s.now)
	s.Equal(models.PhaseAddress, a.Phase)
}

type PhaseSuite struct {
	suite.Suite
}

func TestPhaseSuite(t *testing.T) {
	suite.Run(t, new(PhaseSuite))
}

func (s *PhaseSuite) TestOrder() {
	order := []models.Phase{
		models.PhaseEmail, models.PhaseOTP, models.PhaseType, models.PhaseName, models.PhaseBusiness,
		models.PhasePin, models.PhaseAddress, models.PhaseSelfie, models.PhaseDone,
	}
	for i := 1; i < len(order); i++ {
		s.True(order[i-1].IsBefore(order[i]), "%s before %s", order[i-1], order[i])
		s.False(order[i].IsBefore(order[i-1]))
	}
	s.Equal(-1, models.Phase("bogus").Rank())
}

func (s *PhaseSuite) TestNextAction() {
	s.Equal(models.ActionVerifyOTP, models.PhaseOTP.NextAction())
	s.Equal(models.ActionCompleteVerification, models.PhaseSelfie.NextAction())
	s.Empty(models.PhaseDone.NextAction())

	for _, a := range []models.Action{
		models.ActionSetAccountType, models.ActionSetName, models.ActionSetBusiness,
		models.ActionSetPin, models.ActionSetAddress, models.ActionCompleteVerification,
	} {
		s.Equal(a, a.Phase().NextAction(), "action %s round-trips through its phase", a)
	}
}

func (s *PhaseSuite) TestParse() {
	p, err := models.ParsePhase(" Selfie ")
	s.Require().NoError(err)
	s.Equal(models.PhaseSelfie, p)

	_, err = models.ParsePhase("verified")
	s.Error(err)

	k, err := models.ParseKind("BUSINESS")
	s.Require().NoError(err)
	s.Equal(models.KindBusiness, k)

	_, err = models.ParseKind("corporate")
	s.Error(err)
}
