// Package metrics defines the CAS metrics surface (CasMetrics) with a
// nil-safe contract: every recorder takes the interface value itself
// as its first argument and no-ops on nil, so a disabled deployment
// pays zero overhead.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry creates the process-wide Prometheus registry. Call once
// at startup before constructing any metrics.
func InitRegistry() *prometheus.Registry {
	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool { return enabled }

// GetRegistry returns the process-wide registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry { return registry }

// Handler serves the registry's collected metrics in the Prometheus
// exposition format, or 404s if metrics are disabled.
func Handler() http.Handler {
	if !enabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
