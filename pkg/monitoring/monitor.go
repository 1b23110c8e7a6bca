package monitoring

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
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	EnrollmentCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_enrollments_total",
			Help: "Course enrollment attempts by result",
		},
		[]string{"result"},
	)

	CompletionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "learnhub_course_completions_total",
			Help: "Courses transitioned to completed",
		},
	)

	EventRegistrationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_event_registrations_total",
			Help: "Event registration attempts by result",
		},
		[]string{"result"},
	)

	OutboxTaskCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learnhub_outbox_tasks_total",
			Help: "Outbox task executions by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "learnhub_ws_connections",
			Help: "Live notification websocket connections",
		},
	)
)

var registerOnce sync.Once

// Init 可重复调用，仅首次注册
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			EnrollmentCounter,
			CompletionCounter,
			EventRegistrationCounter,
			OutboxTaskCounter,
			WSConnections,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
