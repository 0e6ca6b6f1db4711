// Package metrics provides Prometheus metrics for the assistant front-ends.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upstream API metrics
var (
	// upstreamRequestDuration records the duration of upstream API requests.
	// Labels:
	//   - endpoint: API path (e.g., "/process_query", "/meetings")
	//   - result: Transport-level outcome ("ok", "transport_error", "non_json")
	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_upstream_request_duration_seconds",
			Help:    "Duration of upstream assistant API requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint", "result"},
	)

	// upstreamStatusTotal records application-level response statuses.
	// Labels:
	//   - endpoint: API path
	//   - status: Server-reported status ("success", "conflict", "error", ...)
	upstreamStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_upstream_status_total",
			Help: "Total upstream responses by application-level status",
		},
		[]string{"endpoint", "status"},
	)
)

func init() {
	prometheus.MustRegister(upstreamRequestDuration)
	prometheus.MustRegister(upstreamStatusTotal)
}

// ObserveUpstream records one upstream request with its transport-level result.
func ObserveUpstream(endpoint, result string, durationSeconds float64) {
	upstreamRequestDuration.WithLabelValues(endpoint, result).Observe(durationSeconds)
}

// RecordUpstreamStatus records the application-level status of a decoded response.
func RecordUpstreamStatus(endpoint, status string) {
	upstreamStatusTotal.WithLabelValues(endpoint, status).Inc()
}
