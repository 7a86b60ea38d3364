package api

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts store calls by operation and outcome.
type Metrics struct {
	requestCount *prometheus.CounterVec
}

// NewMetrics registers the client call counter with the given registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secureshare_client_requests_total",
				Help: "Total number of document store calls issued by the client.",
			},
			[]string{"operation", "outcome"},
		),
	}
	if err := reg.Register(m.requestCount); err != nil {
		return nil, err
	}
	return m, nil
}

// observe records one finished call. A nil receiver is a no-op so the
// client can run without a registry wired in.
func (m *Metrics) observe(operation, outcome string) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(operation, outcome).Inc()
}
