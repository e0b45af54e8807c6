// Package metrics exposes Prometheus metrics for the bus, the component
// runtime and the network bridge.
//
// A single [Registry] is created by the launcher and handed to components
// through their environment. Recording methods are safe on nil receivers
// so code paths without metrics need no checks.
//
//	reg := metrics.NewRegistry()
//	b := bus.New(bus.WithMetrics(reg.Bus))
//	http.Handle("/metrics", reg.Handler())
package metrics
