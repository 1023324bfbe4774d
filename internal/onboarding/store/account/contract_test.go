package account_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"

	"stoop/internal/onboarding/models"
	id "stoop/pkg/domain"
	dErrors "stoop/pkg/domain-errors"
	"stoop/pkg/platform/sentinel"
)

// Store is the surface both implementations share.
type Store interface {
	Create(ctx context.Context, a *models.Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Execute(ctx context.Context, accountID id.AccountID, validate func(*models.Account) error, mutate func(*models.Account)) (*models.Account, error)
}

// StoreContractSuite runs the same behavioral checks against any Store.
type StoreContractSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
	ctx      context.Context
	now      time.Time
}

func (s *StoreContractSuite) SetupTest() {
	s.store = s.newStore()
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (s *StoreContractSuite) newAccount(email string) *models.Account {
	a, err := models.NewPendingAccount(id.NewAccountID(), email, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, a))
	return a
}

func (s *StoreContractSuite) TestCreateAndFind() {
	s.Run("finds by id and email", func() {
		a := s.newAccount("find@example.com")

		byID, err := s.store.FindByID(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Equal(a.Email, byID.Email)
		s.Equal(models.PhaseOTP, byID.Phase)

		byEmail, err := s.store.FindByEmail(s.ctx, "find@example.com")
		s.Require().NoError(err)
		s.Equal(a.ID, byEmail.ID)
	})

	s.Run("unknown account is not found", func() {
		_, err := s.store.FindByID(s.ctx, id.NewAccountID())
		s.ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByEmail(s.ctx, "nobody@example.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("duplicate email is rejected", func() {
		s.newAccount("dup@example.com")
		other, err := models.NewPendingAccount(id.NewAccountID(), "dup@example.com", s.now)
		s.Require().NoError(err)
		s.ErrorIs(s.store.Create(s.ctx, other), sentinel.ErrAlreadyUsed)
	})
}

func (s *StoreContractSuite) TestExecute() {
	s.Run("persists the mutation", func() {
		a := s.newAccount("exec@example.com")
		later := s.now.Add(time.Minute)

		updated, err := s.store.Execute(s.ctx, a.ID,
			func(acc *models.Account) error { return nil },
			func(acc *models.Account) { acc.ApplyEmailConfirmed(later) },
		)
		s.Require().NoError(err)
		s.Equal(models.PhaseType, updated.Phase)

		found, err := s.store.FindByID(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Equal(models.PhaseType, found.Phase)
		s.Require().NotNil(found.EmailConfirmedAt)
		s.True(later.Equal(*found.EmailConfirmedAt))
	})

	s.Run("validation failure writes nothing", func() {
		a := s.newAccount("noop@example.com")
		wantErr := dErrors.New(dErrors.CodeValidation, "nope")

		_, err := s.store.Execute(s.ctx, a.ID,
			func(acc *models.Account) error { return wantErr },
			func(acc *models.Account) { acc.Phase = models.PhaseDone },
		)
		s.ErrorIs(err, wantErr)

		found, err := s.store.FindByID(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Equal(models.PhaseOTP, found.Phase)
	})

	s.Run("unknown account is not found", func() {
		_, err := s.store.Execute(s.ctx, id.NewAccountID(),
			func(*models.Account) error { return nil },
			func(*models.Account) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreContractSuite) TestRoundTripsFullAccount() {
	a := s.newAccount("full@example.com")
	profile := models.BusinessProfile{
		Name:          "Corner Cafe",
		Category:      models.CategoryCafe,
		Description:   "Espresso",
		Website:       "https://cornercafe.example.com",
		Phone:         "+12125550134",
		Hours:         models.WeeklyHours{models.Monday: {Open: "07:00", Close: "15:00"}, models.Sunday: {Closed: true}},
		Neighborhoods: []string{"Midtown", "Hell's Kitchen"},
	}

	_, err := s.store.Execute(s.ctx, a.ID,
		func(*models.Account) error { return nil },
		func(acc *models.Account) {
			acc.ApplyEmailConfirmed(s.now)
			acc.ApplyKind(models.KindBusiness, s.now)
			acc.ApplyName("Jane Doe", s.now)
			acc.ApplyBusiness(profile, s.now)
			acc.ApplyPin("$2a$04$hash", s.now)
			acc.ApplyAddress(models.Address{Text: "150 W 47th St", Lat: 40.7599, Lng: -73.9845, Geocoded: true}, s.now)
			acc.ApplyVerificationFailure(812.5, s.now)
		},
	)
	s.Require().NoError(err)

	found, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.PhaseSelfie, found.Phase)
	s.Equal(models.KindBusiness, found.Kind)
	s.Equal("Jane Doe", found.DisplayName)
	s.Equal("$2a$04$hash", found.PinHash)
	s.Require().NotNil(found.Address)
	s.Equal("150 W 47th St", found.Address.Text)
	s.InDelta(40.7599, found.Address.Lat, 1e-9)
	s.True(found.Address.Geocoded)
	s.Require().NotNil(found.Business)
	s.Equal(profile.Neighborhoods, found.Business.Neighborhoods)
	s.Equal(profile.Hours, found.Business.Hours)
	s.Equal(profile.Phone, found.Business.Phone)
	s.Equal(1, found.Verification.Failures)
	s.InDelta(812.5, found.Verification.LastDistanceMeters, 1e-9)
}

func (s *StoreContractSuite) TestReturnedAccountsAreCopies() {
	a := s.newAccount("copy@example.com")
	found, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	found.Phase = models.PhaseDone

	again, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.PhaseOTP, again.Phase)
}

// TestConcurrentExecuteSerializes checks that of many concurrent attempts at
// the same transition exactly one passes validation.
func (s *StoreContractSuite) TestConcurrentExecuteSerializes() {
	a := s.newAccount("race@example.com")
	const goroutines = 20

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		rejected  atomic.Int32
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, a.ID,
				func(acc *models.Account) error { return acc.ExpectPhase(models.PhaseOTP) },
				func(acc *models.Account) { acc.ApplyEmailConfirmed(s.now) },
			)
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeOutOfOrder):
				rejected.Add(1)
			default:
				s.T().Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), rejected.Load())
}
