// Package token issues the short-lived bearer token that binds post-OTP
// onboarding commands to the verified account.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "stoop/pkg/domain"
	dErrors "stoop/pkg/domain-errors"
)

const (
	DefaultIssuer   = "stoop"
	Audience        = "onboarding"
	DefaultTTL      = 24 * time.Hour
	minSecretLength = 16
)

// Claims are the onboarding token claims. Subject is the account ID.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service signs and validates HS256 onboarding tokens.
type Service struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(signingKey string, opts ...Option) (*Service, error) {
	if len(signingKey) < minSecretLength {
		return nil, fmt.Errorf("onboarding token secret must be at least %d bytes", minSecretLength)
	}
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     DefaultIssuer,
		ttl:        DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue returns a signed token for the account and its expiry.
func (s *Service) Issue(accountID id.AccountID, email string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			Issuer:    s.issuer,
			Audience:  []string{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	})
	signed, err := t.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign onboarding token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate checks signature, issuer, audience and expiry and returns the
// account the token was issued for.
func (s *Service) Validate(tokenString string) (id.AccountID, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, "onboarding token has expired")
		}
		return id.AccountID{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid onboarding token")
	}
	if !parsed.Valid {
		return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid onboarding token")
	}
	accountID, err := id.ParseAccountID(claims.Subject)
	if err != nil {
		return id.AccountID{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid onboarding token subject")
	}
	return accountID, nil
}
