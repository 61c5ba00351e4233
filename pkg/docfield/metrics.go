package docfield

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts field evaluations. A nil *Metrics records nothing.
type Metrics struct {
	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docfield_field_evaluations_total",
				Help: "Number of field evaluations by field type and status",
			},
			[]string{"field_type", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docfield_field_evaluation_seconds",
				Help:    "Time spent evaluating one field",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"field_type"},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.evaluations, m.duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// observe records one evaluation. status is an EvalStatus name or "error".
func (m *Metrics) observe(fieldType, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if fieldType == "" {
		fieldType = "empty"
	}
	m.evaluations.WithLabelValues(fieldType, status).Inc()
	m.duration.WithLabelValues(fieldType).Observe(elapsed.Seconds())
}

// Evaluations returns the counter vector, mainly for tests
func (m *Metrics) Evaluations() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.evaluations
}
