package sentinel

import "errors"

// Stores and infrastructure adapters return these (optionally wrapped) to
// report facts about a resource. Services translate them into domain-errors
// codes; they never reach the HTTP layer directly.
//
//   - ErrNotFound: no record for the key
//   - ErrAlreadyUsed: a unique key (email) is already taken, or a single-use
//     value (OTP) was already consumed
//   - ErrExpired: the record exists but its validity window has passed
//   - ErrLocked: the record is locked after too many failed attempts
//   - ErrInvalidState: the record is in the wrong state for the operation
//   - ErrUnavailable: the backing service could not be reached
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrExpired      = errors.New("expired")
	ErrLocked       = errors.New("locked")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
