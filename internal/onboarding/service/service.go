// Package service is the onboarding state machine. Every command is checked
// against the stored phase and applied through the account store's Execute
// callback so the check and the advance happen under one lock.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stoop/internal/audit"
	"stoop/internal/geo"
	onboardingmetrics "stoop/internal/onboarding/metrics"
	"stoop/internal/onboarding/models"
	id "stoop/pkg/domain"
	dErrors "stoop/pkg/domain-errors"
)

const (
	DefaultMaxDistanceMeters = 250.0
	DefaultCaptureMaxAge     = 10 * time.Minute
	DefaultCaptureFutureSkew = time.Minute
	DefaultStepTimeout       = 15 * time.Second
	DefaultVerifyTimeout     = 5 * time.Second
)

type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Execute(ctx context.Context, accountID id.AccountID, validate func(*models.Account) error, mutate func(*models.Account)) (*models.Account, error)
}

// OTP issues and checks email codes.
type OTP interface {
	Send(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) error
}

type AddressResolver interface {
	Resolve(ctx context.Context, address string) (geo.AddressCandidate, error)
}

type PinHasher interface {
	Hash(pin string) (string, error)
}

type TokenIssuer interface {
	Issue(accountID id.AccountID, email string) (string, time.Time, error)
}

type Auditor interface {
	Emit(ctx context.Context, e audit.Event)
}

// RateLimiter throttles code sends per email and per client IP. Reset
// restarts one key's window.
type RateLimiter interface {
	Check(ctx context.Context, keys ...string) error
	Reset(ctx context.Context, key string) error
}

// Service orchestrates the onboarding flow.
type Service struct {
	accounts AccountStore
	otp      OTP
	resolver AddressResolver
	pins     PinHasher
	tokens   TokenIssuer

	auditor           Auditor
	sendLimiter       RateLimiter
	logger            *slog.Logger
	metrics           *onboardingmetrics.Metrics
	tracer            trace.Tracer
	maxDistanceMeters float64
	captureMaxAge     time.Duration
	captureFutureSkew time.Duration
	stepTimeout       time.Duration
	verifyTimeout     time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithSendLimiter(l RateLimiter) Option {
	return func(s *Service) {
		s.sendLimiter = l
	}
}

func WithMetrics(m *onboardingmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMaxDistance sets the radius a capture must fall within.
func WithMaxDistance(meters float64) Option {
	return func(s *Service) {
		if meters > 0 {
			s.maxDistanceMeters = meters
		}
	}
}

// WithCaptureWindow bounds how old, or how far in the future, a capture
// timestamp may be.
func WithCaptureWindow(maxAge, futureSkew time.Duration) Option {
	return func(s *Service) {
		if maxAge > 0 {
			s.captureMaxAge = maxAge
		}
		if futureSkew >= 0 {
			s.captureFutureSkew = futureSkew
		}
	}
}

// WithTimeouts bounds a whole command and the verification step.
func WithTimeouts(step, verify time.Duration) Option {
	return func(s *Service) {
		if step > 0 {
			s.stepTimeout = step
		}
		if verify > 0 {
			s.verifyTimeout = verify
		}
	}
}

func New(accounts AccountStore, otp OTP, resolver AddressResolver, pins PinHasher, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		accounts:          accounts,
		otp:               otp,
		resolver:          resolver,
		pins:              pins,
		tokens:            tokens,
		logger:            slog.Default(),
		tracer:            otel.Tracer("stoop/onboarding"),
		maxDistanceMeters: DefaultMaxDistanceMeters,
		captureMaxAge:     DefaultCaptureMaxAge,
		captureFutureSkew: DefaultCaptureFutureSkew,
		stepTimeout:       DefaultStepTimeout,
		verifyTimeout:     DefaultVerifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle dispatches one command. OTP commands need no account; every other
// command applies to accountID, which the caller takes from the onboarding
// token.
func (s *Service) Handle(ctx context.Context, accountID id.AccountID, cmd models.Command) (result any, err error) {
	action := cmd.Action()
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "onboarding."+string(action),
		trace.WithAttributes(attribute.String("onboarding.action", string(action))))
	defer func() {
		s.metrics.ObserveCommand(string(action), resultLabel(err), start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	defer cancel()

	switch c := cmd.(type) {
	case models.SendOTP:
		return s.SendOTP(ctx, c)
	case models.VerifyOTP:
		return s.VerifyOTP(ctx, c)
	}

	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "onboarding token required")
	}
	span.SetAttributes(attribute.String("onboarding.account_id", accountID.String()))

	switch c := cmd.(type) {
	case models.SetAccountType:
		return s.SetAccountType(ctx, accountID, c)
	case models.SetName:
		return s.SetName(ctx, accountID, c)
	case models.SetBusiness:
		return s.SetBusiness(ctx, accountID, c)
	case models.SetPin:
		return s.SetPin(ctx, accountID, c)
	case models.SetAddress:
		return s.SetAddress(ctx, accountID, c)
	case models.CompleteVerification:
		return s.CompleteVerification(ctx, accountID, c)
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "unsupported action")
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(dErrors.CodeOf(err))
}

func (s *Service) emit(ctx context.Context, e audit.Event) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, e)
}
