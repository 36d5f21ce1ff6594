// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled API requests.
	// Labels: method, route (chi pattern), status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scriptorium",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	// HTTPDuration measures request latency.
	// Labels: method, route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scriptorium",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	}, []string{"method", "route"})

	// RecordWrites counts successful store mutations.
	// Labels: kind (subject, document, report), op (create, update).
	RecordWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scriptorium",
		Subsystem: "store",
		Name:      "writes_total",
		Help:      "Total record writes by kind and operation",
	}, []string{"kind", "op"})

	// ValidationFailures counts rejected inputs.
	// Labels: kind.
	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scriptorium",
		Subsystem: "schema",
		Name:      "rejections_total",
		Help:      "Total rejected create or update payloads by kind",
	}, []string{"kind"})
)
