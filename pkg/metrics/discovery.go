package metrics

import "github.com/prometheus/client_golang/prometheus"

// DiscoveryMetrics tracks ping/pong discovery.
type DiscoveryMetrics struct {
	rounds  prometheus.Counter
	found   prometheus.Counter
	pongs   prometheus.Counter
	lastLen prometheus.Gauge
}

func newDiscoveryMetrics() *DiscoveryMetrics {
	return &DiscoveryMetrics{
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "rounds_total",
			Help:      "Total number of discovery rounds started",
		}),
		found: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "servers_found_total",
			Help:      "Total number of distinct servers found across rounds",
		}),
		pongs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "pongs_sent_total",
			Help:      "Total number of pong replies sent by responders",
		}),
		lastLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "last_round_servers",
			Help:      "Number of servers found by the most recent round",
		}),
	}
}

func (m *DiscoveryMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.rounds, m.found, m.pongs, m.lastLen}
}

// RecordRound counts a finished round that found n servers.
func (m *DiscoveryMetrics) RecordRound(n int) {
	if m == nil {
		return
	}
	m.rounds.Inc()
	m.found.Add(float64(n))
	m.lastLen.Set(float64(n))
}

// RecordPong counts one pong reply.
func (m *DiscoveryMetrics) RecordPong() {
	if m == nil {
		return
	}
	m.pongs.Inc()
}
