// Package email normalizes and inspects account email addresses.
package email

import (
	"strings"
	"unicode"

	"github.com/asaskevich/govalidator"

	dErrors "stoop/pkg/domain-errors"
)

// MaxLength is the longest address accepted (RFC 5321 path limit).
const MaxLength = 254

// Normalize trims and lower-cases raw and checks its syntax. The returned
// value is the canonical key for uniqueness and OTP challenges.
func Normalize(raw string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(raw))
	if e == "" {
		return "", dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if len(e) > MaxLength {
		return "", dErrors.New(dErrors.CodeValidation, "email is too long")
	}
	if !govalidator.IsEmail(e) {
		return "", dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	return e, nil
}

// SuggestedName derives a display-name hint from the local part, e.g.
// "jane.doe+ads@x.io" becomes "Jane Doe". Returns "" when nothing usable remains.
func SuggestedName(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		local = email[:at]
	}
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || unicode.IsDigit(r)
	})
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
