// Package prometheus provides the Prometheus-backed implementation of
// pkg/metrics.CasMetrics, registered into pkg/metrics via init() to
// avoid an import cycle between the two packages.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rimdb/rim/pkg/metrics"
)

func init() {
	metrics.RegisterCasMetricsConstructor(func() metrics.CasMetrics {
		return newCasMetrics()
	})
}

type casMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	handleOccupancy  prometheus.Gauge
	cancellations    *prometheus.CounterVec
	cascadeDepth     prometheus.Histogram
	sessionOpen      prometheus.Gauge
}

func newCasMetrics() *casMetrics {
	reg := metrics.GetRegistry()
	return &casMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rim_cas_requests_total",
				Help: "Total number of CAS requests by function code and outcome.",
			},
			[]string{"function_code", "error_code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rim_cas_request_duration_seconds",
				Help:    "Duration of CAS request dispatch by function code.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"function_code"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rim_cas_requests_in_flight",
				Help: "Number of CAS requests currently being dispatched by function code.",
			},
			[]string{"function_code"},
		),
		handleOccupancy: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "rim_cas_handle_table_occupancy",
				Help: "Number of in-use slots in this connection's statement/cursor handle table.",
			},
		),
		cancellations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rim_cas_cancellations_total",
				Help: "Total number of client-initiated query cancellations by function code.",
			},
			[]string{"function_code"},
		),
		cascadeDepth: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rim_cas_catalog_mirror_cascade_depth",
				Help:    "Number of rows touched by one catalog mirror insert/update/delete cascade.",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
			},
		),
		sessionOpen: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "rim_cas_session_open",
				Help: "1 if this CAS process currently holds an open client session, else 0.",
			},
		),
	}
}

func (m *casMetrics) RecordRequest(functionCode string, duration time.Duration, errorCode string) {
	m.requestsTotal.WithLabelValues(functionCode, errorCode).Inc()
	m.requestDuration.WithLabelValues(functionCode).Observe(duration.Seconds())
}

func (m *casMetrics) RecordRequestStart(functionCode string) {
	m.requestsInFlight.WithLabelValues(functionCode).Inc()
}

func (m *casMetrics) RecordRequestEnd(functionCode string) {
	m.requestsInFlight.WithLabelValues(functionCode).Dec()
}

func (m *casMetrics) SetHandleTableOccupancy(count int) {
	m.handleOccupancy.Set(float64(count))
}

func (m *casMetrics) RecordCancellation(functionCode string) {
	m.cancellations.WithLabelValues(functionCode).Inc()
}

func (m *casMetrics) RecordCascadeDepth(depth int) {
	m.cascadeDepth.Observe(float64(depth))
}

func (m *casMetrics) SetSessionOpen(open bool) {
	if open {
		m.sessionOpen.Set(1)
	} else {
		m.sessionOpen.Set(0)
	}
}
