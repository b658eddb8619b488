// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorhub_logins_total",
			Help: "Login attempts by role and outcome",
		},
		[]string{"role", "outcome"},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorhub_auth_failures_total",
			Help: "Requests rejected by token verification",
		},
		[]string{"reason"},
	)

	AccessDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorhub_access_denied_total",
			Help: "Requests denied by the authorization gate",
		},
		[]string{"action", "reason"},
	)

	AttendanceWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorhub_attendance_records_written_total",
			Help: "Attendance records written by batch",
		},
		[]string{"batch"},
	)

	AttendanceRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorhub_attendance_entries_rejected_total",
			Help: "Attendance entries dropped during batch marking",
		},
		[]string{"batch"},
	)

	ScoresWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorhub_test_scores_written_total",
			Help: "Test-score records written by batch and subject",
		},
		[]string{"batch", "subject"},
	)

	ScorePercent = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorhub_test_score_percent",
			Help:    "Distribution of recorded test scores as a percentage of the maximum",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"batch"},
	)

	LedgerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorhub_ledger_events_consumed_total",
			Help: "Ledger change events handled by consumers",
		},
		[]string{"kind", "batch"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorhub_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)

// GinMiddleware observes request durations labelled by route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		APIRequestDuration.
			WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
