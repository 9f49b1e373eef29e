// Package metrics defines Prometheus metrics for the schedule bot.
//
// Metrics are registered with the default registry and served by promhttp.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// WebhookRequestsTotal counts webhook calls by result (ok, unauthorized, invalid, error).
	WebhookRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedulebot_webhook_requests_total",
			Help: "Total Telegram webhook requests by result.",
		},
		[]string{"result"},
	)

	// UpdatesTotal counts dispatched updates by route.
	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedulebot_updates_total",
			Help: "Total Telegram updates dispatched by route.",
		},
		[]string{"route"},
	)

	// HandlerErrorsTotal counts handler failures by route.
	HandlerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedulebot_handler_errors_total",
			Help: "Total handler failures caught by the dispatcher.",
		},
		[]string{"route"},
	)

	// UpstreamRequestsTotal counts upstream schedule API calls by operation and status code.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedulebot_upstream_requests_total",
			Help: "Total upstream schedule API requests.",
		},
		[]string{"operation", "status"},
	)

	// UpstreamDurationSeconds observes upstream latency by operation.
	UpstreamDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schedulebot_upstream_duration_seconds",
			Help:    "Duration of upstream schedule API requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// CacheLookupsTotal counts cache lookups by operation and result (hit, miss).
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedulebot_cache_lookups_total",
			Help: "Total schedule cache lookups.",
		},
		[]string{"operation", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		WebhookRequestsTotal,
		UpdatesTotal,
		HandlerErrorsTotal,
		UpstreamRequestsTotal,
		UpstreamDurationSeconds,
		CacheLookupsTotal,
	)
}

// RecordUpstream records one upstream call. A status of 0 means transport failure.
func RecordUpstream(operation string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequestsTotal.WithLabelValues(operation, label).Inc()
	UpstreamDurationSeconds.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(operation string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(operation, result).Inc()
}
