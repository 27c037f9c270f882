// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_http_requests_total",
			Help: "Inbound HTTP requests by route pattern and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bff_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_upstream_requests_total",
			Help: "Outbound upstream attempts by service, method and status (0 for transport failures).",
		},
		[]string{"service", "method", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bff_upstream_request_duration_seconds",
			Help:    "Outbound upstream attempt latency.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_upstream_retries_total",
			Help: "Retries issued against an upstream.",
		},
		[]string{"service"},
	)

	UpstreamUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bff_upstream_up",
			Help: "Result of the last upstream health probe (1 up, 0 down).",
		},
		[]string{"service"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bff_circuit_breaker_state",
			Help: "Circuit breaker state per upstream.",
		},
		[]string{"service"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions.",
		},
		[]string{"service", "from", "to"},
	)

	ScanResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bff_scan_results_total",
			Help: "QR scan outcomes by result.",
		},
		[]string{"outcome"},
	)
)

func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func RecordUpstreamAttempt(service, method string, status int, elapsed time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(service, method, strconv.Itoa(status)).Inc()
	UpstreamRequestDuration.WithLabelValues(service, method).Observe(elapsed.Seconds())
}

func SetUpstreamUp(service string, up bool) {
	value := 0.0
	if up {
		value = 1
	}
	UpstreamUp.WithLabelValues(service).Set(value)
}
