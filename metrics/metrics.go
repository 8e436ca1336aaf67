package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "billister",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billister",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SavedSearchMatchesTotal counts match events recorded for new listings.
	SavedSearchMatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "billister",
			Name:      "saved_search_matches_total",
			Help:      "Total saved-search match events recorded",
		},
	)

	// SavedSearchSkippedTotal counts saved searches whose stored criteria could not be decoded.
	SavedSearchSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "billister",
			Name:      "saved_search_skipped_total",
			Help:      "Saved searches skipped because their criteria could not be decoded",
		},
	)

	// CacheLookupsTotal counts catalog cache hits and misses.
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billister",
			Name:      "cache_lookups_total",
			Help:      "Vehicle catalog cache hits and misses",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(SavedSearchMatchesTotal)
	prometheus.MustRegister(SavedSearchSkippedTotal)
	prometheus.MustRegister(CacheLookupsTotal)
}

// Middleware records HTTP request duration and count, labelled by route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := normalizePath(c.FullPath())
		method := c.Request.Method

		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	}
}

// normalizePath keeps unmatched routes from exploding label cardinality.
func normalizePath(path string) string {
	if path == "" {
		return "unknown"
	}
	return path
}
