package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the onboarding state machine.
type Metrics struct {
	Commands         *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec
	OutOfOrder       *prometheus.CounterVec
	LocationMismatch prometheus.Counter
	Completed        *prometheus.CounterVec
	VerifyDistanceM  prometheus.Histogram
}

// New registers onboarding metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stoop_onboarding_commands_total",
			Help: "Onboarding commands by action and result code",
		}, []string{"action", "result"}),
		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stoop_onboarding_command_duration_seconds",
			Help:    "Duration of onboarding commands, including bcrypt and geocoding",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"action"}),
		OutOfOrder: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stoop_onboarding_out_of_order_total",
			Help: "Commands rejected because they did not match the stored phase",
		}, []string{"action", "phase"}),
		LocationMismatch: f.NewCounter(prometheus.CounterOpts{
			Name: "stoop_onboarding_location_mismatch_total",
			Help: "Verification captures rejected for failing liveness or distance",
		}),
		Completed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stoop_onboarding_completed_total",
			Help: "Accounts that reached the done phase, by kind",
		}, []string{"kind"}),
		VerifyDistanceM: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stoop_onboarding_verification_distance_meters",
			Help:    "Distance between the capture and the claimed address",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 5000, 25000},
		}),
	}
}

// ObserveCommand records one command's outcome. Call with time.Now() taken at
// the start of the command.
func (m *Metrics) ObserveCommand(action, result string, start time.Time) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(action, result).Inc()
	m.CommandDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncOutOfOrder(action, phase string) {
	if m != nil {
		m.OutOfOrder.WithLabelValues(action, phase).Inc()
	}
}

func (m *Metrics) IncLocationMismatch() {
	if m != nil {
		m.LocationMismatch.Inc()
	}
}

func (m *Metrics) IncCompleted(kind string) {
	if m != nil {
		m.Completed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) ObserveDistance(meters float64) {
	if m != nil {
		m.VerifyDistanceM.Observe(meters)
	}
}
