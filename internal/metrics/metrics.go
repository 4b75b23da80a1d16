package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AttemptsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exam_attempts_started_total",
			Help: "Attempts opened",
		},
	)

	AttemptsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_attempts_closed_total",
			Help: "Attempts closed, by closing status",
		},
		[]string{"status"},
	)

	CloseRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exam_attempt_close_retries_total",
			Help: "Scoring pipeline reruns caused by a progress save racing a close",
		},
	)

	Violations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_violations_total",
			Help: "Proctoring violations recorded",
		},
		[]string{"type", "severity"},
	)

	FinalPercentage = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exam_attempt_percentage",
			Help:    "Final percentage of closed attempts",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AttemptsStarted,
			AttemptsClosed,
			CloseRetries,
			Violations,
			FinalPercentage,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
