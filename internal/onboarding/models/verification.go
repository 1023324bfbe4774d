package models

import (
	"time"

	"stoop/internal/geo"
	dErrors "stoop/pkg/domain-errors"
)

// VerificationResult is the contract with the external identity verifier: one
// live capture, whether it passed liveness, and where it was taken.
type VerificationResult struct {
	Passed     bool      `json:"passed"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	CapturedAt time.Time `json:"capturedAt"`
}

// CheckCapture validates the capture time and, for passing captures, the
// coordinates. A zero CapturedAt is stamped with now.
func (r VerificationResult) CheckCapture(now time.Time, maxAge, futureSkew time.Duration) (VerificationResult, error) {
	if r.CapturedAt.IsZero() {
		r.CapturedAt = now
	}
	if maxAge > 0 && now.Sub(r.CapturedAt) > maxAge {
		return r, dErrors.New(dErrors.CodeValidation, "capture is too old; take a new one")
	}
	if r.CapturedAt.Sub(now) > futureSkew {
		return r, dErrors.New(dErrors.CodeValidation, "capture time is in the future")
	}
	if r.Passed && !geo.ValidCoordinates(r.Lat, r.Lng) {
		return r, dErrors.New(dErrors.CodeValidation, "capture coordinates are invalid")
	}
	return r, nil
}

// Verification is the account's record of capture attempts.
type Verification struct {
	Passed             bool       `json:"passed"`
	Lat                float64    `json:"lat,omitempty"`
	Lng                float64    `json:"lng,omitempty"`
	CapturedAt         *time.Time `json:"captured_at,omitempty"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	Failures           int        `json:"failures"`
	LastDistanceMeters float64    `json:"last_distance_meters,omitempty"`
	LastAttemptAt      *time.Time `json:"last_attempt_at,omitempty"`
}
