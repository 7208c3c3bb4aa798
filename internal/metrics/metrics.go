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
	OrdersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pephaul_orders_submitted_total",
		Help: "Orders accepted and persisted.",
	})

	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pephaul_orders_cancelled_total",
		Help: "Orders soft-cancelled.",
	})

	PaymentsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pephaul_payments_confirmed_total",
		Help: "Payments confirmed by an admin.",
	})

	OrderDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pephaul_order_denials_total",
		Help: "Order actions denied, by action and reason.",
	}, []string{"action", "reason"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pephaul_http_requests_total",
		Help: "HTTP requests, by method, path and status.",
	}, []string{"method", "path", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pephaul_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
