package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	dErrors "stoop/pkg/domain-errors"
)

// FuzzParseAccountID feeds token subjects into the parser. Every rejection
// must be a validation error, and every accepted subject must name a real
// account in canonical form.
func FuzzParseAccountID(f *testing.F) {
	for _, seed := range []string{
		"",
		"   ",
		NewAccountID().String(),
		strings.ToUpper(NewAccountID().String()),
		"{" + NewAccountID().String() + "}",
		"urn:uuid:" + NewAccountID().String(),
		uuid.Nil.String(),
		"jane@example.com",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, subject string) {
		accountID, err := ParseAccountID(subject)
		if err != nil {
			if !dErrors.HasCode(err, dErrors.CodeValidation) {
				t.Fatalf("rejection of %q is %v, want validation_error", subject, err)
			}
			return
		}
		if accountID.IsNil() {
			t.Fatalf("accepted the nil account for %q", subject)
		}
		canonical := accountID.String()
		if canonical != strings.ToLower(canonical) {
			t.Fatalf("non-canonical form %q", canonical)
		}
		again, err := ParseAccountID(canonical)
		if err != nil || again != accountID {
			t.Fatalf("canonical form %q does not parse back: %v", canonical, err)
		}
	})
}
