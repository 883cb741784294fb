// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for the target label.
const (
	TargetInternal = "internal"
	TargetExternal = "external"
)

var (
	SubRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_subrequests_total",
			Help: "Total number of sub-requests by target kind and outcome",
		},
		[]string{"target", "outcome"},
	)

	SubRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_subrequest_duration_seconds",
			Help:    "Duration of sub-request processing in seconds, including streaming",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		},
		[]string{"target"},
	)

	StreamedBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_streamed_bytes_total",
			Help: "Total number of sub-response body bytes forwarded to clients",
		},
		[]string{"target"},
	)

	AggregationsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_aggregations_active",
			Help: "Number of /multiple requests currently being written",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "gateway_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "route"},
	)
)

// TargetLabel maps the internal flag to a target label value.
func TargetLabel(isInternal bool) string {
	if isInternal {
		return TargetInternal
	}
	return TargetExternal
}
