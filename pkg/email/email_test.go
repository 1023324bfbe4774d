package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "stoop/pkg/domain-errors"
)

func TestNormalize(t *testing.T) {
	t.Run("lower-cases and trims", func(t *testing.T) {
		got, err := Normalize("  Jane.Doe@Example.COM ")
		require.NoError(t, err)
		assert.Equal(t, "jane.doe@example.com", got)
	})

	for _, raw := range []string{"", "   ", "not-an-email", "a@", "@b.com"} {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, err := Normalize(raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}

	t.Run("rejects overlong address", func(t *testing.T) {
		_, err := Normalize(strings.Repeat("a", 250) + "@x.io")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestSuggestedName(t *testing.T) {
	assert.Equal(t, "Jane Doe", SuggestedName("jane.doe+ads@example.com"))
	assert.Equal(t, "Bob", SuggestedName("BOB42@example.com"))
	assert.Equal(t, "", SuggestedName("1234@example.com"))
}
