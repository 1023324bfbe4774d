// Package ratelimit throttles abusable onboarding actions, such as code
// sends, with a sliding window per key.
package ratelimit

import (
	"strings"
	"time"
)

// Rule allows Limit hits per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// Key builds a bucket key. Segments are sanitized so a ':' in a
// caller-supplied value cannot address another bucket.
func Key(scope string, parts ...string) string {
	segs := make([]string, 0, len(parts)+1)
	segs = append(segs, scope)
	for _, p := range parts {
		segs = append(segs, SanitizeKeySegment(p))
	}
	return strings.Join(segs, ":")
}

func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
