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
	analysisAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analysis_admitted_total",
		Help: "Total submissions admitted by the quota.",
	})
	analysisDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analysis_denied_total",
		Help: "Total submissions denied by the quota.",
	})
	analysisCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analysis_completed_total",
		Help: "Total analyses completed and recorded.",
	})
	analysisFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_failed_total",
		Help: "Total analyses failed, by stage.",
	}, []string{"stage"})
	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_duration_ms",
		Help:    "Analysis duration in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})
	analysisScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_score",
		Help:    "Distribution of extracted resume scores.",
		Buckets: prometheus.LinearBuckets(10, 10, 10),
	})
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})
)

// IncAnalysisAdmitted increments the admitted counter.
func IncAnalysisAdmitted() {
	analysisAdmitted.Inc()
}

// IncAnalysisDenied increments the denied counter.
func IncAnalysisDenied() {
	analysisDenied.Inc()
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() {
	analysisCompleted.Inc()
}

// IncAnalysisFailed increments the failed counter for a pipeline stage.
func IncAnalysisFailed(stage string) {
	analysisFailed.WithLabelValues(stage).Inc()
}

// ObserveAnalysisDuration records an analysis duration.
func ObserveAnalysisDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	analysisDuration.Observe(float64(d.Microseconds()) / 1000.0)
}

// ObserveScore records an extracted score.
func ObserveScore(score int) {
	analysisScore.Observe(float64(score))
}

// Middleware counts requests by route template and status.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
