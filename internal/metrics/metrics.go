// Package metrics holds the process-wide Prometheus collectors served on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hrm",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hrm",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hrm",
		Name:      "auth_events_total",
		Help:      "Authentication events by kind and result.",
	}, []string{"event", "result"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hrm",
		Name:      "notifications_total",
		Help:      "Queued notifications processed by type and result.",
	}, []string{"type", "result"})
)
