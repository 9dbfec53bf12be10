// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ComplaintsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fixmycity",
		Name:      "complaints_submitted_total",
		Help:      "Complaint submissions by outcome.",
	}, []string{"outcome"})

	ImageUploadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fixmycity",
		Name:      "image_upload_failures_total",
		Help:      "Complaint image batches that failed to upload.",
	})

	ActivityWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fixmycity",
		Name:      "activity_write_failures_total",
		Help:      "Activity records that could not be persisted.",
	})

	StatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fixmycity",
		Name:      "complaint_status_changes_total",
		Help:      "Complaint status transitions by target status.",
	}, []string{"status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fixmycity",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Middleware records request latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
