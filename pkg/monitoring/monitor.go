package monitoring

import (
	"strconv"
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

	// QuestionsProcessed counts questions finishing a batch run, by final state.
	QuestionsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_questions_total",
			Help: "Questions processed by the batch evaluator, by final state",
		},
		[]string{"state"},
	)

	// GraderRequests counts individual grader calls (one per chunk).
	GraderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grader_requests_total",
			Help: "Grader calls by outcome",
		},
		[]string{"outcome"},
	)

	GraderTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grader_tokens_total",
			Help: "Tokens consumed by grader calls",
		},
		[]string{"kind"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(QuestionsProcessed)
	prometheus.MustRegister(GraderRequests)
	prometheus.MustRegister(GraderTokens)
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
