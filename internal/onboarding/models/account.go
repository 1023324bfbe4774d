package models

import (
	"time"

	id "stoop/pkg/domain"
	dErrors "stoop/pkg/domain-errors"
)

// Account is the onboarding aggregate.
//
// Invariants:
//   - Email is normalized lower-case and unique across accounts
//   - Phase only moves forward; each Apply method advances exactly one step
//   - Business is set only for KindBusiness accounts
//   - PinHash is a bcrypt hash, never the PIN itself
//   - Phase is done only after a passing capture within the allowed radius
//
// Each step has a CanX check and an ApplyX mutation so the service can run
// both inside the store's Execute callback under the account lock.
type Account struct {
	ID               id.AccountID
	Email            string
	DisplayName      string
	Kind             Kind
	PinHash          string
	Phase            Phase
	Address          *Address
	Business         *BusinessProfile
	Verification     Verification
	EmailConfirmedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Address is the canonical location the account claims to live or trade at.
type Address struct {
	Text string  `json:"text"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`

	// Geocoded is true when coordinates came from a resolver call rather than
	// a selected suggestion.
	Geocoded bool `json:"geocoded"`
}

// NewPendingAccount creates the record that waits for OTP confirmation.
func NewPendingAccount(accountID id.AccountID, email string, now time.Time) (*Account, error) {
	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account ID is required")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account email is required")
	}
	return &Account{
		ID:        accountID,
		Email:     email,
		Phase:     PhaseOTP,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (a *Account) HasPin() bool {
	return a.PinHash != ""
}

func (a *Account) IsBusiness() bool {
	return a.Kind == KindBusiness
}

func (a *Account) IsComplete() bool {
	return a.Phase == PhaseDone
}

// ExpectPhase fails with an out-of-order error unless the account is at want.
func (a *Account) ExpectPhase(want Phase) error {
	if a.Phase != want {
		return OutOfOrder(a.Phase, want)
	}
	return nil
}

// OutOfOrder builds the error returned when a command does not match the
// stored phase.
func OutOfOrder(current, attempted Phase) error {
	return &PhaseError{Current: current, Attempted: attempted}
}

// PhaseError carries both phases so the service can log and audit them; it
// unwraps to a CodeOutOfOrder domain error.
type PhaseError struct {
	Current   Phase
	Attempted Phase
}

func (e *PhaseError) Error() string {
	return "out of order transition: account is at " + string(e.Current) + ", command needs " + string(e.Attempted)
}

func (e *PhaseError) Unwrap() error {
	return dErrors.New(dErrors.CodeOutOfOrder, "please restart this step")
}

// ApplyEmailConfirmed records OTP confirmation. Accounts already past the OTP
// step keep their phase.
func (a *Account) ApplyEmailConfirmed(now time.Time) {
	a.EmailConfirmedAt = &now
	if a.Phase.IsBefore(PhaseType) {
		a.Phase = PhaseType
	}
	a.UpdatedAt = now
}

func (a *Account) CanSetKind() error {
	return a.ExpectPhase(PhaseType)
}

func (a *Account) ApplyKind(kind Kind, now time.Time) {
	a.Kind = kind
	a.Phase = PhaseName
	a.UpdatedAt = now
}

func (a *Account) CanSetName() error {
	return a.ExpectPhase(PhaseName)
}

// ApplyName stores the display name and branches on kind.
func (a *Account) ApplyName(name string, now time.Time) {
	a.DisplayName = name
	if a.IsBusiness() {
		a.Phase = PhaseBusiness
	} else {
		a.Phase = PhasePin
	}
	a.UpdatedAt = now
}

func (a *Account) CanSetBusiness() error {
	if err := a.ExpectPhase(PhaseBusiness); err != nil {
		return err
	}
	if !a.IsBusiness() {
		return dErrors.New(dErrors.CodeInvariantViolation, "business profile requires a business account")
	}
	return nil
}

func (a *Account) ApplyBusiness(profile BusinessProfile, now time.Time) {
	a.Business = &profile
	a.Phase = PhasePin
	a.UpdatedAt = now
}

func (a *Account) CanSetPin() error {
	return a.ExpectPhase(PhasePin)
}

func (a *Account) ApplyPin(hash string, now time.Time) {
	a.PinHash = hash
	a.Phase = PhaseAddress
	a.UpdatedAt = now
}

func (a *Account) CanSetAddress() error {
	return a.ExpectPhase(PhaseAddress)
}

func (a *Account) ApplyAddress(addr Address, now time.Time) {
	a.Address = &addr
	a.Phase = PhaseSelfie
	a.UpdatedAt = now
}

func (a *Account) CanCompleteVerification() error {
	if err := a.ExpectPhase(PhaseSelfie); err != nil {
		return err
	}
	if a.Address == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "account has no verified address")
	}
	return nil
}

// ApplyVerificationFailure records a rejected capture. The phase stays at
// selfie so the client can retry.
func (a *Account) ApplyVerificationFailure(distanceMeters float64, now time.Time) {
	a.Verification.Failures++
	a.Verification.LastDistanceMeters = distanceMeters
	a.Verification.LastAttemptAt = &now
	a.UpdatedAt = now
}

// ApplyVerified stores the passing capture and completes onboarding.
func (a *Account) ApplyVerified(result VerificationResult, distanceMeters float64, now time.Time) {
	captured := result.CapturedAt
	a.Verification.Passed = true
	a.Verification.Lat = result.Lat
	a.Verification.Lng = result.Lng
	a.Verification.CapturedAt = &captured
	a.Verification.LastDistanceMeters = distanceMeters
	a.Verification.LastAttemptAt = &now
	a.Verification.VerifiedAt = &now
	a.Phase = PhaseDone
	a.UpdatedAt = now
}
