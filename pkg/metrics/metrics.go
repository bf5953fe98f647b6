package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// Requests counts finished discovery requests by terminal status
	// (done, no_path_found, failed).
	Requests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "causeway_requests_total",
		Help: "Finished causal discovery requests by terminal status.",
	}, []string{"status"})

	// OutboundCalls counts calls against the knowledge-base API by endpoint
	// and outcome (ok, error, rate_limited).
	OutboundCalls = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "causeway_outbound_calls_total",
		Help: "Outbound knowledge-base API calls by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	// CacheEvents counts path-cache activity (hit, miss, fallback).
	CacheEvents = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "causeway_cache_events_total",
		Help: "Path cache hits, misses, and fallback dataset uses.",
	}, []string{"event"})

	// RequestDuration observes end-to-end discovery latency in seconds.
	RequestDuration = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "causeway_request_duration_seconds",
		Help:    "End-to-end causal discovery request duration.",
		Buckets: prometheus.DefBuckets,
	})
)

// Handler returns the HTTP handler serving the package registry, mounted at
// /metrics by the server.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
