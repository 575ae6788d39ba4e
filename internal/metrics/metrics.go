// Package metrics provides Prometheus collectors for the vector store and
// the analysis routines.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// FastBuckets covers in-process operations from 50µs to 1s.
var FastBuckets = []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

var (
	// InsertsTotal counts vectors inserted by mode (single, batch, recover) and status.
	InsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vexus_inserts_total",
			Help: "Vectors inserted",
		},
		[]string{"mode", "status"},
	)

	// GrowthEventsTotal counts capacity growth attempts by outcome.
	GrowthEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vexus_growth_events_total",
			Help: "Capacity growth events",
		},
		[]string{"status"},
	)

	// StoreSize tracks the number of vectors held by the store.
	StoreSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vexus_store_size",
			Help: "Vectors in the store",
		},
	)

	// StoreCapacity tracks the reserved capacity of the store.
	StoreCapacity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vexus_store_capacity",
			Help: "Reserved store capacity",
		},
	)

	// SearchDuration records search latency in seconds.
	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vexus_search_duration_seconds",
			Help:    "Search duration",
			Buckets: FastBuckets,
		},
	)

	// AnalysisDuration records analysis latency in seconds by routine.
	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vexus_analysis_duration_seconds",
			Help:    "Analysis routine duration",
			Buckets: FastBuckets,
		},
		[]string{"routine"},
	)

	// RecoveryRowsTotal counts rows seen during bulk recovery by outcome
	// (inserted, skipped, failed).
	RecoveryRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vexus_recovery_rows_total",
			Help: "Rows processed by bulk recovery",
		},
		[]string{"outcome"},
	)

	// HTTPRequestsTotal counts API requests by route and status class.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vexus_http_requests_total",
			Help: "HTTP API requests",
		},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		InsertsTotal,
		GrowthEventsTotal,
		StoreSize,
		StoreCapacity,
		SearchDuration,
		AnalysisDuration,
		RecoveryRowsTotal,
		HTTPRequestsTotal,
	)
}

// StatusClass maps an HTTP status code to "2xx", "4xx" or "5xx".
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
