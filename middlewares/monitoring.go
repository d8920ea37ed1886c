package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grocery_orders_http_requests_total",
			Help: "HTTP requests served, by method, gin route and status code.",
		},
		[]string{"method", "route", "code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grocery_orders_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route", "code"},
	)

	orderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grocery_orders_order_operations_total",
			Help: "Order manager calls made by the HTTP handlers, by outcome.",
		},
		[]string{"operation", "result"},
	)

	deliveryQuotes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grocery_orders_delivery_quotes_total",
			Help: "Delivery quotes by radius outcome",
		},
		[]string{"radius"},
	)

	rateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "grocery_orders_rate_limited_total",
			Help: "Requests rejected by the order rate limiter",
		},
	)
)

// PrometheusMiddleware records request count and latency per route.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()

		// Label by route template, never the raw URL.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, code).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route, code).Observe(time.Since(began).Seconds())
	}
}

func RecordOrderOperation(operation string, success bool) {
	orderOperations.WithLabelValues(operation, outcome(success, "success", "error")).Inc()
}

func RecordDeliveryQuote(withinRadius bool) {
	deliveryQuotes.WithLabelValues(outcome(withinRadius, "within", "outside")).Inc()
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
