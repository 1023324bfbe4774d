package geo

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	dErrors "stoop/pkg/domain-errors"
	"stoop/pkg/platform/circuit"
)

type fakeGeocoder struct {
	calls   atomic.Int32
	results []AddressCandidate
	err     error
	delay   time.Duration
}

func (f *fakeGeocoder) Search(ctx context.Context, _ string, limit int) ([]AddressCandidate, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.results) {
		return f.results[:limit], nil
	}
	return f.results, nil
}

type ResolverSuite struct {
	suite.Suite
	ctx      context.Context
	geocoder *fakeGeocoder
	metrics  *Metrics
	logger   *slog.Logger
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
	s.geocoder = &fakeGeocoder{results: []AddressCandidate{
		{DisplayName: "12 Elm St, Springfield", Lat: 39.7817, Lng: -89.6501},
		{DisplayName: "12 Elm Ct, Springfield", Lat: 39.7900, Lng: -89.6600},
	}}
	s.metrics = NewMetrics(prometheus.NewRegistry())
	s.logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func (s *ResolverSuite) newResolver(opts ...Option) *Resolver {
	opts = append([]Option{WithLogger(s.logger), WithMetrics(s.metrics)}, opts...)
	return NewResolver(s.geocoder, opts...)
}

func (s *ResolverSuite) TestSuggest() {
	s.Run("short queries skip the geocoder", func() {
		r := s.newResolver()
		for _, q := range []string{"", "  ", "12", " é "} {
			got, err := r.Suggest(s.ctx, q)
			s.Require().NoError(err)
			s.Empty(got)
			s.NotNil(got)
		}
		s.Equal(int32(0), s.geocoder.calls.Load())
	})

	s.Run("returns ranked candidates", func() {
		got, err := s.newResolver(WithSuggestLimit(1)).Suggest(s.ctx, "12 Elm")
		s.Require().NoError(err)
		s.Len(got, 1)
		s.Equal("12 Elm St, Springfield", got[0].DisplayName)
	})

	s.Run("overlong queries are rejected", func() {
		long := make([]byte, maxQueryRunes+1)
		for i := range long {
			long[i] = 'a'
		}
		_, err := s.newResolver().Suggest(s.ctx, string(long))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ResolverSuite) TestSuggestUsesCache() {
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })

	r := s.newResolver(WithCache(NewRedisCache(client, time.Minute)))
	_, err := r.Suggest(s.ctx, "12 Elm")
	s.Require().NoError(err)
	_, err = r.Suggest(s.ctx, "12  elm")
	s.Require().NoError(err)

	s.Equal(int32(1), s.geocoder.calls.Load())
	s.InDelta(1, testutil.ToFloat64(s.metrics.CacheLookups.WithLabelValues("hit")), 0)
}

func (s *ResolverSuite) TestResolve() {
	s.Run("best match", func() {
		got, err := s.newResolver().Resolve(s.ctx, "12 Elm St")
		s.Require().NoError(err)
		s.InDelta(39.7817, got.Lat, 1e-9)
	})

	s.Run("no match is address_not_found", func() {
		s.geocoder.results = nil
		_, err := s.newResolver().Resolve(s.ctx, "nowhere at all")
		s.True(dErrors.HasCode(err, dErrors.CodeAddressNotFound))
	})

	s.Run("blank address is validation", func() {
		_, err := s.newResolver().Resolve(s.ctx, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ResolverSuite) TestTimeoutIsTransient() {
	s.geocoder.delay = time.Second
	r := s.newResolver(WithTimeout(20 * time.Millisecond))

	_, err := r.Resolve(s.ctx, "12 Elm St")
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout), "got %v", err)
	s.True(dErrors.IsTransient(err))
}

func (s *ResolverSuite) TestBreakerShedsLoad() {
	s.geocoder.err = dErrors.New(dErrors.CodeUnavailable, "upstream down")
	breaker := circuit.New("geocoder", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	r := s.newResolver(WithBreaker(breaker))

	for range 2 {
		_, err := r.Resolve(s.ctx, "12 Elm St")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	}
	s.Equal(circuit.StateOpen, breaker.State())
	s.InDelta(1, testutil.ToFloat64(s.metrics.BreakerOpen), 0)

	_, err := r.Resolve(s.ctx, "12 Elm St")
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal(int32(2), s.geocoder.calls.Load(), "open breaker does not call upstream")
}
