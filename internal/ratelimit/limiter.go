package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "stoop/pkg/domain-errors"
	"stoop/pkg/requestcontext"
)

// Store keeps one sliding window per key. Allow decides all keys together:
// either every key is charged or none is.
type Store interface {
	Allow(ctx context.Context, keys []string, rule Rule) (Result, error)
	Reset(ctx context.Context, key string) error
}

// Limiter applies one rule to every key it is asked about. When the primary
// store fails it falls back to a process-local window rather than letting
// traffic through unchecked.
type Limiter struct {
	scope    string
	rule     Rule
	primary  Store
	fallback *InMemory
	logger   *slog.Logger
	rejected prometheus.Counter
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// WithRegisterer counts rejections under the limiter's scope.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(l *Limiter) {
		l.rejected = promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name:        "stoop_ratelimit_rejected_total",
			Help:        "Requests rejected by a rate limiter",
			ConstLabels: prometheus.Labels{"scope": l.scope},
		})
	}
}

func NewLimiter(scope string, rule Rule, primary Store, opts ...Option) *Limiter {
	l := &Limiter{
		scope:    scope,
		rule:     rule,
		primary:  primary,
		fallback: NewInMemory(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records a hit for every key and fails with CodeRateLimited when any
// of them is over the limit. A rejected call charges none of the keys.
func (l *Limiter) Check(ctx context.Context, keys ...string) error {
	scoped := make([]string, len(keys))
	for i, k := range keys {
		scoped[i] = Key(l.scope, k)
	}
	res, err := l.primary.Allow(ctx, scoped, l.rule)
	if err != nil {
		l.logger.WarnContext(ctx, "rate limit store failed, using local window",
			"error", err,
			"scope", l.scope,
			"request_id", requestcontext.RequestID(ctx),
		)
		res, _ = l.fallback.Allow(ctx, scoped, l.rule)
	}
	if !res.Allowed {
		if l.rejected != nil {
			l.rejected.Inc()
		}
		wait := max(time.Until(res.ResetAt).Round(time.Second), time.Second)
		return dErrors.New(dErrors.CodeRateLimited, fmt.Sprintf("too many requests; try again in %s", wait))
	}
	return nil
}

// Reset clears key in both stores.
func (l *Limiter) Reset(ctx context.Context, k string) error {
	key := Key(l.scope, k)
	_ = l.fallback.Reset(ctx, key)
	return l.primary.Reset(ctx, key)
}
