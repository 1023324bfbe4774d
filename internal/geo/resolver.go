package geo

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "stoop/pkg/domain-errors"
	"stoop/pkg/platform/circuit"
	pstrings "stoop/pkg/platform/strings"
)

const (
	DefaultSuggestLimit = 5
	DefaultTimeout      = 4 * time.Second
	maxQueryRunes       = 200
)

// Resolver is the AddressResolver: ranked suggestions for partial input and a
// single best match for a full address.
type Resolver struct {
	geocoder     Geocoder
	cache        Cache
	breaker      *circuit.Breaker
	suggestLimit int
	timeout      time.Duration
	logger       *slog.Logger
	metrics      *Metrics
	tracer       trace.Tracer
}

type Option func(*Resolver)

func WithCache(c Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Resolver) {
		r.breaker = b
	}
}

func WithSuggestLimit(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.suggestLimit = n
		}
	}
}

// WithTimeout bounds each upstream call.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func NewResolver(geocoder Geocoder, opts ...Option) *Resolver {
	r := &Resolver{
		geocoder:     geocoder,
		breaker:      circuit.New("geocoder"),
		suggestLimit: DefaultSuggestLimit,
		timeout:      DefaultTimeout,
		logger:       slog.Default(),
		tracer:       otel.Tracer("stoop/geo"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Suggest returns up to the configured number of candidates for a partial
// query. Queries shorter than MinQueryRunes return an empty list without
// touching the geocoder.
func (r *Resolver) Suggest(ctx context.Context, query string) ([]AddressCandidate, error) {
	query = pstrings.CollapseSpace(query)
	n := pstrings.RuneLen(query)
	if n < MinQueryRunes {
		return []AddressCandidate{}, nil
	}
	if n > maxQueryRunes {
		return nil, dErrors.New(dErrors.CodeValidation, "query is too long")
	}

	if r.cache != nil {
		cached, ok, err := r.cache.Get(ctx, query)
		switch {
		case err != nil:
			r.logger.WarnContext(ctx, "suggestion cache read failed", "error", err)
		case ok:
			r.metrics.incCache("hit")
			return cached, nil
		default:
			r.metrics.incCache("miss")
		}
	}

	out, err := r.search(ctx, "suggest", query, r.suggestLimit)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, query, out); err != nil {
			r.logger.WarnContext(ctx, "suggestion cache write failed", "error", err)
		}
	}
	return out, nil
}

// Resolve geocodes a complete address to its best match. No match is
// CodeAddressNotFound, which the caller may retry with different text.
func (r *Resolver) Resolve(ctx context.Context, address string) (AddressCandidate, error) {
	address = pstrings.CollapseSpace(address)
	if address == "" {
		return AddressCandidate{}, dErrors.New(dErrors.CodeValidation, "address is required")
	}
	if pstrings.RuneLen(address) > maxQueryRunes {
		return AddressCandidate{}, dErrors.New(dErrors.CodeValidation, "address is too long")
	}

	out, err := r.search(ctx, "resolve", address, 1)
	if err != nil {
		return AddressCandidate{}, err
	}
	if len(out) == 0 {
		return AddressCandidate{}, dErrors.New(dErrors.CodeAddressNotFound, "we could not find that address; check it and try again")
	}
	return out[0], nil
}

func (r *Resolver) search(ctx context.Context, op, query string, limit int) ([]AddressCandidate, error) {
	ctx, span := r.tracer.Start(ctx, "geo."+op, trace.WithAttributes(
		attribute.Int("geo.limit", limit),
		attribute.Int("geo.query_runes", pstrings.RuneLen(query)),
	))
	defer span.End()

	if !r.breaker.Allow() {
		r.metrics.incError(string(dErrors.CodeUnavailable))
		span.SetStatus(codes.Error, "circuit open")
		return nil, dErrors.New(dErrors.CodeUnavailable, "address lookup is temporarily unavailable")
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	out, err := r.geocoder.Search(callCtx, query, limit)
	r.metrics.observeUpstream(op, start)
	if err != nil {
		if callCtx.Err() != nil && ctx.Err() == nil && !dErrors.HasCode(err, dErrors.CodeTimeout) {
			err = dErrors.Wrap(err, dErrors.CodeTimeout, "address lookup timed out")
		}
		r.recordFailure(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}

	if change := r.breaker.RecordSuccess(); change.Closed {
		r.metrics.setBreaker(false)
		r.logger.InfoContext(ctx, "geocoder circuit closed", "breaker", r.breaker.Name())
	}
	span.SetAttributes(attribute.Int("geo.results", len(out)))
	return out, nil
}

// recordFailure only counts upstream faults against the breaker; caller
// cancellation is not the geocoder's fault.
func (r *Resolver) recordFailure(ctx context.Context, err error) {
	code := dErrors.CodeOf(err)
	r.metrics.incError(string(code))
	if ctx.Err() != nil {
		return
	}
	if change := r.breaker.RecordFailure(); change.Opened {
		r.metrics.setBreaker(true)
		r.logger.WarnContext(ctx, "geocoder circuit opened",
			"breaker", r.breaker.Name(),
			"error", err,
		)
	}
	if !dErrors.IsTransient(err) {
		r.logger.ErrorContext(ctx, "geocoder call failed", "error", err, "code", code)
	}
}
