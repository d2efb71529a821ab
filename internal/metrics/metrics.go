// Package metrics holds the Prometheus collectors for the POS backend and
// the gin middleware that feeds the HTTP ones.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kasirpos",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kasirpos",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	Checkouts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kasirpos",
		Subsystem: "pos",
		Name:      "checkouts_total",
		Help:      "Completed sales.",
	})

	Returns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kasirpos",
		Subsystem: "pos",
		Name:      "returns_total",
		Help:      "Completed return transactions.",
	})

	// Suggestions counts suggestion lookups by outcome: hit, ok, error, stale.
	Suggestions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kasirpos",
			Subsystem: "pos",
			Name:      "suggestions_total",
			Help:      "Suggestion lookups by outcome.",
		},
		[]string{"outcome"},
	)

	PersistFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kasirpos",
			Subsystem: "store",
			Name:      "persist_failures_total",
			Help:      "Snapshot saves that failed, by key.",
		},
		[]string{"key"},
	)
)

var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	Registry.MustRegister(
		RequestDuration,
		RequestTotal,
		Checkouts,
		Returns,
		Suggestions,
		PersistFailures,
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency labelled by the matched
// route template, so path parameters do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		RequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		RequestTotal.WithLabelValues(c.Request.Method, route, status).Inc()
	}
}
