package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts pipeline outcomes by state and form type.
type Metrics struct {
	outcomes *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors with reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formgate",
			Subsystem: "pipeline",
			Name:      "outcomes_total",
			Help:      "Special form requests by pipeline outcome.",
		}, []string{"state", "form_type"}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes)
	}
	return m
}

func (m *Metrics) observe(o Outcome, formType string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(o.State.String(), formType).Inc()
}
