package otp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts issuance and verification outcomes.
type Metrics struct {
	Issued   prometheus.Counter
	Verified *prometheus.CounterVec
}

// NewMetrics registers OTP metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Issued: f.NewCounter(prometheus.CounterOpts{
			Name: "stoop_otp_issued_total",
			Help: "Total number of OTP codes issued",
		}),
		Verified: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stoop_otp_verifications_total",
			Help: "OTP verification attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) incIssued() {
	if m != nil {
		m.Issued.Inc()
	}
}

func (m *Metrics) incVerified(outcome string) {
	if m != nil {
		m.Verified.WithLabelValues(outcome).Inc()
	}
}
