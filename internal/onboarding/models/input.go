package models

import (
	"fmt"
	"strings"

	"stoop/internal/geo"
	dErrors "stoop/pkg/domain-errors"
	pstrings "stoop/pkg/platform/strings"
)

const (
	MaxNameRunes    = 100
	MaxAddressRunes = 200
	PinLength       = 4
)

// NormalizeName collapses whitespace and enforces the length bounds.
func NormalizeName(raw string) (string, error) {
	name := pstrings.CollapseSpace(raw)
	if name == "" {
		return "", dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if pstrings.RuneLen(name) > MaxNameRunes {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("name must be %d characters or less", MaxNameRunes))
	}
	return name, nil
}

// ValidatePin accepts exactly four ASCII digits.
func ValidatePin(pin string) error {
	if len(pin) != PinLength {
		return dErrors.New(dErrors.CodeValidation, "pin must be exactly 4 digits")
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return dErrors.New(dErrors.CodeValidation, "pin must be exactly 4 digits")
		}
	}
	return nil
}

// NormalizeAddress trims the free-text address and, when the client selected
// a suggestion, checks its coordinates. Supplying only one of lat and lng is
// rejected.
func NormalizeAddress(text string, lat, lng *float64) (string, bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false, dErrors.New(dErrors.CodeValidation, "address is required")
	}
	if pstrings.RuneLen(text) > MaxAddressRunes {
		return "", false, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("address must be %d characters or less", MaxAddressRunes))
	}
	switch {
	case lat == nil && lng == nil:
		return text, false, nil
	case lat == nil || lng == nil:
		return "", false, dErrors.New(dErrors.CodeValidation, "lat and lng must be supplied together")
	case !geo.ValidCoordinates(*lat, *lng):
		return "", false, dErrors.New(dErrors.CodeValidation, "address coordinates are invalid")
	}
	return text, true, nil
}
