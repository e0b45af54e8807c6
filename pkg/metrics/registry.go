package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "breadcrumbs"

// Registry owns the Prometheus registry and the metric groups.
type Registry struct {
	reg *prometheus.Registry

	Bus       *BusMetrics
	Runtime   *RuntimeMetrics
	Bridge    *BridgeMetrics
	Discovery *DiscoveryMetrics
}

// NewRegistry creates a registry with every metric group and the Go and
// process collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg:       prometheus.NewRegistry(),
		Bus:       newBusMetrics(),
		Runtime:   newRuntimeMetrics(),
		Bridge:    newBridgeMetrics(),
		Discovery: newDiscoveryMetrics(),
	}

	r.reg.MustRegister(r.Bus.collectors()...)
	r.reg.MustRegister(r.Runtime.collectors()...)
	r.reg.MustRegister(r.Bridge.collectors()...)
	r.reg.MustRegister(r.Discovery.collectors()...)
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// BusOrNil returns the bus metrics, or nil for a nil registry.
func (r *Registry) BusOrNil() *BusMetrics {
	if r == nil {
		return nil
	}
	return r.Bus
}

// RuntimeOrNil returns the runtime metrics, or nil for a nil registry.
func (r *Registry) RuntimeOrNil() *RuntimeMetrics {
	if r == nil {
		return nil
	}
	return r.Runtime
}

// BridgeOrNil returns the bridge metrics, or nil for a nil registry.
func (r *Registry) BridgeOrNil() *BridgeMetrics {
	if r == nil {
		return nil
	}
	return r.Bridge
}

// DiscoveryOrNil returns the discovery metrics, or nil for a nil registry.
func (r *Registry) DiscoveryOrNil() *DiscoveryMetrics {
	if r == nil {
		return nil
	}
	return r.Discovery
}
