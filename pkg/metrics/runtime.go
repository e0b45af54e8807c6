package metrics

import "github.com/prometheus/client_golang/prometheus"

// RuntimeMetrics tracks component lifecycle state.
type RuntimeMetrics struct {
	state *prometheus.GaugeVec
}

func newRuntimeMetrics() *RuntimeMetrics {
	return &RuntimeMetrics{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "component",
			Name:      "state",
			Help:      "Component lifecycle state (0=uninitialized, 1=initialized, 2=running, 3=stopped, 4=failed)",
		}, []string{"component", "kind"}),
	}
}

func (m *RuntimeMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.state}
}

// RecordState sets the lifecycle state of a component instance.
func (m *RuntimeMetrics) RecordState(name, kind string, state int) {
	if m == nil {
		return
	}
	m.state.WithLabelValues(name, kind).Set(float64(state))
}
