// Package strings provides string normalization helpers shared by request
// validation.
package strings

import (
	"strings"
	"unicode/utf8"
)

// CollapseSpace trims s and replaces internal whitespace runs with a single
// space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DedupeFold drops blank entries and case-insensitive duplicates, keeping the
// first spelling seen. Entries are whitespace-collapsed. Order is preserved.
//
//	DedupeFold([]string{" Mission  District", "mission district", "SoMa"})
//	// []string{"Mission District", "SoMa"}
func DedupeFold(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		clean := CollapseSpace(v)
		if clean == "" {
			continue
		}
		key := strings.ToLower(clean)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, clean)
	}
	return result
}

// RuneLen counts runes in s after trimming.
func RuneLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
