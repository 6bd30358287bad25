// Package metrics holds the Prometheus collectors shared by the client,
// the service and the HTTP server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequests counts calls to the category API by route and outcome.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finspect_api_requests_total",
		Help: "Category API requests by operation and result kind",
	}, []string{"operation", "result"})

	// APIDuration tracks category API latency.
	APIDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finspect_api_request_duration_seconds",
		Help:    "Category API request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"operation"})

	// CacheLookups counts read cache hits and misses.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finspect_category_cache_lookups_total",
		Help: "Category cache lookups by result",
	}, []string{"result"})

	// CacheInvalidations counts whole cache clears.
	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finspect_category_cache_invalidations_total",
		Help: "Number of times the category cache was cleared",
	})

	// Mutations counts coordinator mutations by action and final state.
	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finspect_category_mutations_total",
		Help: "Category mutations by action and state",
	}, []string{"action", "state"})

	// SharedMutations counts calls that joined an identical in-flight mutation.
	SharedMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finspect_category_mutations_shared_total",
		Help: "Mutations that joined an identical in-flight call",
	}, []string{"action"})

	// Categories reports the latest statistics snapshot.
	Categories = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "finspect_categories",
		Help: "Categories in the current snapshot by kind",
	}, []string{"kind"})

	// HTTPRequests counts inbound requests of the JSON server.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finspect_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "status"})

	// RateLimited counts requests rejected by the mutation rate limit.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finspect_http_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})

	// SuspiciousRequests counts requests matching a known probe pattern.
	SuspiciousRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finspect_http_suspicious_requests_total",
		Help: "Requests that matched a suspicious pattern",
	})
)

// ObserveAPI records one category API call.
func ObserveAPI(operation, result string, started time.Time) {
	APIRequests.WithLabelValues(operation, result).Inc()
	APIDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveCache records a cache lookup.
func ObserveCache(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

// SetCategoryCounts publishes the statistics gauges.
func SetCategoryCounts(total, active, inactive, topLevel, sub int) {
	Categories.WithLabelValues("total").Set(float64(total))
	Categories.WithLabelValues("active").Set(float64(active))
	Categories.WithLabelValues("inactive").Set(float64(inactive))
	Categories.WithLabelValues("top_level").Set(float64(topLevel))
	Categories.WithLabelValues("subcategories").Set(float64(sub))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
