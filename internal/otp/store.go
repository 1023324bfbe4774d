package otp

import (
	"context"
	"time"
)

// Store persists at most one Challenge per email.
//
// Error contract:
//   - Find returns sentinel.ErrNotFound when there is no challenge or it has
//     expired at now.
//   - RecordFailure returns sentinel.ErrNotFound when the challenge vanished
//     between Find and the increment.
//   - Consume returns sentinel.ErrAlreadyUsed when another caller consumed the
//     challenge first.
type Store interface {
	Save(ctx context.Context, c *Challenge) error
	Find(ctx context.Context, email string, now time.Time) (*Challenge, error)
	RecordFailure(ctx context.Context, email string, maxAttempts int) (attempts int, locked bool, err error)
	Consume(ctx context.Context, email string) error
	Delete(ctx context.Context, email string) error
}
