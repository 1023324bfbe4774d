// Package domain holds the typed identifiers shared across modules.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "stoop/pkg/domain-errors"
)

// AccountID identifies an onboarding account. It is a distinct type so that a
// raw uuid.UUID (or another ID kind) cannot be passed where an account is
// expected.
type AccountID uuid.UUID

// EventID identifies an audit event.
type EventID uuid.UUID

// NewAccountID returns a random account identifier.
func NewAccountID() AccountID {
	return AccountID(uuid.New())
}

// NewEventID returns a random event identifier.
func NewEventID() EventID {
	return EventID(uuid.New())
}

// ParseAccountID parses s at a trust boundary (token claims, path params).
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account ID")
	return AccountID(u), err
}

func (a AccountID) String() string { return uuid.UUID(a).String() }
func (a AccountID) IsNil() bool    { return uuid.UUID(a) == uuid.Nil }

func (e EventID) String() string { return uuid.UUID(e).String() }

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" cannot be nil")
	}
	return u, nil
}
