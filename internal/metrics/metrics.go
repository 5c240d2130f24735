// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UpstreamRequests counts data store requests by table and outcome
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "heritage",
		Subsystem: "store",
		Name:      "requests_total",
		Help:      "Data store requests by table and HTTP status (\"error\" for transport failures).",
	}, []string{"table", "status"})

	// UpstreamDuration observes data store latency by table
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "heritage",
		Subsystem: "store",
		Name:      "request_duration_seconds",
		Help:      "Data store request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"table"})

	// UpstreamRetries counts retried data store attempts
	UpstreamRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "heritage",
		Subsystem: "store",
		Name:      "retries_total",
		Help:      "Data store attempts retried after a transient failure.",
	})

	// CacheLookups counts response cache lookups by result (hit, miss)
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "heritage",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Response cache lookups.",
	}, []string{"result"})

	// HTTPRequests counts site requests by route pattern and status code
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "heritage",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Site requests by route and status code.",
	}, []string{"route", "code"})

	// HTTPDuration observes site latency by route pattern
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "heritage",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Site request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
