package geo

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks geocoder traffic and suggestion cache effectiveness.
type Metrics struct {
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	BreakerOpen      prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stoop_geocoder_request_duration_seconds",
			Help:    "Latency of geocoder calls by operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}, []string{"op"}),
		UpstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stoop_geocoder_errors_total",
			Help: "Geocoder failures by error code",
		}, []string{"code"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stoop_geocoder_cache_lookups_total",
			Help: "Suggestion cache lookups by result",
		}, []string{"result"}),
		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "stoop_geocoder_breaker_open",
			Help: "1 while the geocoder circuit breaker is open",
		}),
	}
}

func (m *Metrics) observeUpstream(op string, start time.Time) {
	if m != nil {
		m.UpstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) incError(code string) {
	if m != nil {
		m.UpstreamErrors.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) incCache(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) setBreaker(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
	} else {
		m.BreakerOpen.Set(0)
	}
}
