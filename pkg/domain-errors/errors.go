// Package domainerrors defines the typed error codes shared by every layer of
// the onboarding pipeline. Services return these; the HTTP boundary maps the
// code to a status and a stable JSON envelope.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. Codes are part of the public API: they
// are written verbatim into the "error" field of responses.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeUnauthorized       Code = "unauthorized"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeOutOfOrder         Code = "out_of_order_transition"
	CodeOTPMismatch        Code = "otp_mismatch"
	CodeOTPExpired         Code = "otp_expired"
	CodeOTPLocked          Code = "otp_locked"
	CodeRateLimited        Code = "rate_limited"
	CodeAddressNotFound    Code = "address_not_found"
	CodeLocationMismatch   Code = "location_mismatch"
	CodeUnavailable        Code = "unavailable"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is a domain error carrying a Code, a user-facing message and an
// optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a domain error without an underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether the outermost domain error in err's chain has code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Is is shorthand for HasCode, kept for call sites that read better as a
// predicate on the error.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code of the outermost domain error, or CodeInternal when
// err is not a domain error.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the user-facing message of the outermost domain error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// IsTransient reports whether the failure came from a downstream dependency and
// the same request can be retried unchanged.
func IsTransient(err error) bool {
	switch CodeOf(err) {
	case CodeUnavailable, CodeTimeout:
		return true
	default:
		return false
	}
}
