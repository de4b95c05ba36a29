// Package metrics holds the Prometheus collectors for the API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voyas_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voyas_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Business metrics
	MessagesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voyas_messages_created_total",
			Help: "Total messages created",
		},
	)

	ValidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voyas_validation_failures_total",
			Help: "Requests rejected by input validation",
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voyas_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"route"},
	)

	// Infrastructure metrics
	PostgresPingLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "voyas_postgres_ping_latency_seconds",
			Help:    "PostgreSQL ping latency from health checks",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
	)
)
