package metrics

import "time"

// CasMetrics provides observability for one CAS process's request
// dispatch loop. Implementations are optional: pass nil to disable
// metrics collection with zero overhead.
type CasMetrics interface {
	// RecordRequest records a completed dispatch with its function
	// code, duration, and outcome.
	RecordRequest(functionCode string, duration time.Duration, errorCode string)

	// RecordRequestStart increments the in-flight request gauge.
	RecordRequestStart(functionCode string)
	// RecordRequestEnd decrements the in-flight request gauge.
	RecordRequestEnd(functionCode string)

	// SetHandleTableOccupancy reports the number of in-use slots in
	// the connection's statement/cursor handle table (C8).
	SetHandleTableOccupancy(count int)

	// RecordCancellation records a client-initiated query
	// cancellation (spec §4.7 "Cancel").
	RecordCancellation(functionCode string)

	// RecordCascadeDepth records how many rows one catalog mirror
	// insert/update/delete cascade touched (spec §4.4).
	RecordCascadeDepth(depth int)

	// SetSessionOpen reports whether this CAS process currently holds
	// an open client session (1) or is idle (0).
	SetSessionOpen(open bool)
}

// RecordRequest is the nil-safe package-level helper.
func RecordRequest(m CasMetrics, functionCode string, duration time.Duration, errorCode string) {
	if m != nil {
		m.RecordRequest(functionCode, duration, errorCode)
	}
}

// RecordRequestStart is the nil-safe package-level helper.
func RecordRequestStart(m CasMetrics, functionCode string) {
	if m != nil {
		m.RecordRequestStart(functionCode)
	}
}

// RecordRequestEnd is the nil-safe package-level helper.
func RecordRequestEnd(m CasMetrics, functionCode string) {
	if m != nil {
		m.RecordRequestEnd(functionCode)
	}
}

// SetHandleTableOccupancy is the nil-safe package-level helper.
func SetHandleTableOccupancy(m CasMetrics, count int) {
	if m != nil {
		m.SetHandleTableOccupancy(count)
	}
}

// RecordCancellation is the nil-safe package-level helper.
func RecordCancellation(m CasMetrics, functionCode string) {
	if m != nil {
		m.RecordCancellation(functionCode)
	}
}

// RecordCascadeDepth is the nil-safe package-level helper.
func RecordCascadeDepth(m CasMetrics, depth int) {
	if m != nil {
		m.RecordCascadeDepth(depth)
	}
}

// SetSessionOpen is the nil-safe package-level helper.
func SetSessionOpen(m CasMetrics, open bool) {
	if m != nil {
		m.SetSessionOpen(open)
	}
}

// NewCasMetrics returns nil when metrics are disabled, and otherwise the
// Prometheus implementation registered by pkg/metrics/prometheus's
// init(), avoiding an import cycle between this package and its own
// implementation subpackage.
func NewCasMetrics() CasMetrics {
	if !IsEnabled() || newPrometheusCasMetrics == nil {
		return nil
	}
	return newPrometheusCasMetrics()
}

var newPrometheusCasMetrics func() CasMetrics

// RegisterCasMetricsConstructor is called by pkg/metrics/prometheus's
// init() to wire the Prometheus implementation into NewCasMetrics.
func RegisterCasMetricsConstructor(constructor func() CasMetrics) {
	newPrometheusCasMetrics = constructor
}
