package amat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors of propagations. A nil *Metrics records nothing.
type Metrics struct {
	propagations *prometheus.CounterVec
	steps        prometheus.Counter
	flagged      *prometheus.CounterVec
	duration     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		propagations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amat_propagations_total",
				Help: "Total number of entry propagations by termination.",
			},
			[]string{"termination"},
		),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amat_propagation_steps_total",
			Help: "Total number of recorded integration steps.",
		}),
		flagged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "amat_flagged_values_total",
				Help: "Derived quantities evaluated outside of their validated domain.",
			},
			[]string{"quantity"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "amat_propagation_duration_seconds",
			Help:    "Wall clock duration of a propagation.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	for _, c := range []prometheus.Collector{m.propagations, m.steps, m.flagged, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observePropagation(term Termination, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.propagations.WithLabelValues(term.String()).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeStep(f Flags) {
	if m == nil {
		return
	}
	m.steps.Inc()
	if f.Has(DensityOutOfRange) {
		m.flagged.WithLabelValues("density").Inc()
	}
	if f.Has(ConvectiveOutOfRange) {
		m.flagged.WithLabelValues("convective").Inc()
	}
	if f.Has(RadiativeOutOfRange) {
		m.flagged.WithLabelValues("radiative").Inc()
	}
}
