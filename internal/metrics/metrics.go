package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forum_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	RatingTogglesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_rating_toggles_total",
		Help: "Rating toggle operations by resulting action",
	}, []string{"action"})
	AggregationRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_aggregation_runs_total",
		Help: "Leaderboard aggregation job runs by outcome",
	}, []string{"job", "status"})
	AggregationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forum_aggregation_duration_seconds",
		Help:    "Leaderboard aggregation job duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RatingTogglesTotal,
		AggregationRunsTotal,
		AggregationDuration,
	)
}

// GinMiddleware records request count and latency per method/path/status.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HTTPRequestsTotal.With(labels).Inc()
		HTTPRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
