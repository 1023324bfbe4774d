package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeFold(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "drops blanks",
			input:    []string{"", "   ", "Noe Valley"},
			expected: []string{"Noe Valley"},
		},
		{
			name:     "case-insensitive duplicates keep first spelling",
			input:    []string{"SoMa", "soma", "SOMA"},
			expected: []string{"SoMa"},
		},
		{
			name:     "collapses internal whitespace before comparing",
			input:    []string{" Mission  District", "mission district", "Castro"},
			expected: []string{"Mission District", "Castro"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeFold(tt.input))
		})
	}
}

func TestRuneLen(t *testing.T) {
	assert.Equal(t, 3, RuneLen("  abc "))
	assert.Equal(t, 2, RuneLen("日本"))
	assert.Equal(t, 0, RuneLen("   "))
}
