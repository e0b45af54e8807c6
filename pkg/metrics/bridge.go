package metrics

import "github.com/prometheus/client_golang/prometheus"

// BridgeMetrics tracks the network client and server.
type BridgeMetrics struct {
	connections    *prometheus.GaugeVec
	framesIn       *prometheus.CounterVec
	framesOut      *prometheus.CounterVec
	invalidFrames  *prometheus.CounterVec
	droppedFrames  *prometheus.CounterVec
	bytesOut       *prometheus.CounterVec
	connectsTotal  *prometheus.CounterVec
	disconnectsTot *prometheus.CounterVec
}

func newBridgeMetrics() *BridgeMetrics {
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &BridgeMetrics{
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "connections",
			Help:      "Number of open bridge connections",
		}, []string{"component"}),
		framesIn:       counter("frames_received_total", "Total number of valid frames received", "component"),
		framesOut:      counter("frames_sent_total", "Total number of frames queued for sending", "component"),
		invalidFrames:  counter("frames_invalid_total", "Total number of frames failing sync or checksum validation", "component"),
		droppedFrames:  counter("frames_dropped_total", "Total number of outbound frames dropped", "component", "reason"),
		bytesOut:       counter("bytes_sent_total", "Total number of encoded bytes queued for sending", "component"),
		connectsTotal:  counter("connects_total", "Total number of connections established", "component"),
		disconnectsTot: counter("disconnects_total", "Total number of connections closed", "component"),
	}
}

func (m *BridgeMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.connections, m.framesIn, m.framesOut, m.invalidFrames,
		m.droppedFrames, m.bytesOut, m.connectsTotal, m.disconnectsTot,
	}
}

// RecordConnect counts a new connection.
func (m *BridgeMetrics) RecordConnect(component string) {
	if m == nil {
		return
	}
	m.connectsTotal.WithLabelValues(component).Inc()
	m.connections.WithLabelValues(component).Inc()
}

// RecordDisconnect counts a closed connection.
func (m *BridgeMetrics) RecordDisconnect(component string) {
	if m == nil {
		return
	}
	m.disconnectsTot.WithLabelValues(component).Inc()
	m.connections.WithLabelValues(component).Dec()
}

// RecordFrameIn counts a valid inbound frame.
func (m *BridgeMetrics) RecordFrameIn(component string) {
	if m == nil {
		return
	}
	m.framesIn.WithLabelValues(component).Inc()
}

// RecordInvalidFrame counts an inbound frame that failed validation.
func (m *BridgeMetrics) RecordInvalidFrame(component string) {
	if m == nil {
		return
	}
	m.invalidFrames.WithLabelValues(component).Inc()
}

// RecordFrameOut counts an outbound frame of size bytes queued on
// copies connections.
func (m *BridgeMetrics) RecordFrameOut(component string, size, copies int) {
	if m == nil {
		return
	}
	m.framesOut.WithLabelValues(component).Add(float64(copies))
	m.bytesOut.WithLabelValues(component).Add(float64(size * copies))
}

// RecordDrop counts an outbound frame that was not sent.
func (m *BridgeMetrics) RecordDrop(component, reason string) {
	if m == nil {
		return
	}
	m.droppedFrames.WithLabelValues(component, reason).Inc()
}
