package metrics

import "github.com/prometheus/client_golang/prometheus"

// BusMetrics counts message bus activity per message id.
type BusMetrics struct {
	published     *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	handlerErrors *prometheus.CounterVec
}

func newBusMetrics() *BusMetrics {
	return &BusMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "published_total",
			Help:      "Total number of messages published on the bus",
		}, []string{"id"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "deliveries_total",
			Help:      "Total number of handler invocations",
		}, []string{"id"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "handler_errors_total",
			Help:      "Total number of handlers that returned an error or panicked",
		}, []string{"id"}),
	}
}

func (m *BusMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.published, m.deliveries, m.handlerErrors}
}

// RecordPublish counts one publish delivered to n handlers.
func (m *BusMetrics) RecordPublish(id string, n int) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(id).Inc()
	m.deliveries.WithLabelValues(id).Add(float64(n))
}

// RecordHandlerError counts one failed handler invocation.
func (m *BusMetrics) RecordHandlerError(id string) {
	if m == nil {
		return
	}
	m.handlerErrors.WithLabelValues(id).Inc()
}
