package authapi

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts auth outcomes. All counters are optional: a nil Metrics
// disables collection (unit tests).
type Metrics struct {
	logins    *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	reuse     prometheus.Counter
}

// NewMetrics registers the auth counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ripple_auth_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ripple_auth_refreshes_total",
			Help: "Refresh rotations by result.",
		}, []string{"result"}),
		reuse: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ripple_auth_refresh_reuse_detected_total",
			Help: "Refresh tokens presented again after rotation.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.logins, m.refreshes, m.reuse)
	}
	return m
}

func (m *Metrics) login(result string) {
	if m != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) refresh(result string) {
	if m != nil {
		m.refreshes.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) reuseDetected() {
	if m != nil {
		m.reuse.Inc()
	}
}
