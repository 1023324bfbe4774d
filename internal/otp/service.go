package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	dErrors "stoop/pkg/domain-errors"
	"stoop/pkg/platform/sentinel"
)

const (
	DefaultTTL         = 15 * time.Minute
	DefaultMaxAttempts = 5
)

// Service owns the challenge lifecycle for every email.
type Service struct {
	store       Store
	sender      Sender
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	generate    func() (string, error)
	logger      *slog.Logger
	metrics     *Metrics
}

type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithCodeGenerator replaces the random generator, for tests.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		s.generate = gen
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(store Store, sender Sender, opts ...Option) *Service {
	s := &Service{
		store:       store,
		sender:      sender,
		ttl:         DefaultTTL,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		generate:    randomCode,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a fresh challenge for email, replacing any earlier one, and
// returns the plaintext code.
func (s *Service) Issue(ctx context.Context, email string) (string, time.Time, error) {
	code, err := s.generate()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate otp: %w", err)
	}
	now := s.now()
	c := &Challenge{
		Email:     email,
		CodeHash:  HashCode(email, code),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	prev, err := s.store.Find(ctx, email, now)
	switch {
	case err == nil:
		c.SupersededHashes = prev.replace()
	case !errors.Is(err, sentinel.ErrNotFound):
		return "", time.Time{}, err
	}
	if err := s.store.Save(ctx, c); err != nil {
		return "", time.Time{}, err
	}
	s.metrics.incIssued()
	return code, c.ExpiresAt, nil
}

// Send issues a challenge and dispatches it through the sender.
func (s *Service) Send(ctx context.Context, email string) error {
	code, expiresAt, err := s.Issue(ctx, email)
	if err != nil {
		return err
	}
	if err := s.sender.Send(ctx, Delivery{Email: email, Code: code, ExpiresAt: expiresAt}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "could not send verification code")
	}
	return nil
}

// Verify checks code against the active challenge. A match consumes it.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	c, err := s.store.Find(ctx, email, s.now())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.incVerified("expired")
			return dErrors.New(dErrors.CodeOTPExpired, "no active code; request a new one")
		}
		return err
	}
	if c.Locked {
		s.metrics.incVerified("locked")
		return dErrors.New(dErrors.CodeOTPLocked, "too many incorrect codes; request a new one")
	}

	if !c.Matches(code) {
		if c.Supersedes(code) {
			s.metrics.incVerified("expired")
			return dErrors.New(dErrors.CodeOTPExpired, "this code was replaced by a newer one")
		}
		attempts, locked, err := s.store.RecordFailure(ctx, email, s.maxAttempts)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeOTPExpired, "no active code; request a new one")
			}
			return err
		}
		if locked {
			s.metrics.incVerified("locked")
			s.logger.WarnContext(ctx, "otp challenge locked",
				"email", email,
				"attempts", attempts,
			)
			return dErrors.New(dErrors.CodeOTPLocked, "too many incorrect codes; request a new one")
		}
		s.metrics.incVerified("mismatch")
		return dErrors.New(dErrors.CodeOTPMismatch, "incorrect code")
	}

	if err := s.store.Consume(ctx, email); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.metrics.incVerified("expired")
			return dErrors.New(dErrors.CodeOTPExpired, "code already used; request a new one")
		}
		return err
	}
	s.metrics.incVerified("ok")
	return nil
}

// Invalidate drops any active challenge for email.
func (s *Service) Invalidate(ctx context.Context, email string) error {
	return s.store.Delete(ctx, email)
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
