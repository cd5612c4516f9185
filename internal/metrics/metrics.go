// Package metrics provides Prometheus instrumentation for the access platform.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ztap",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ztap",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// EventsRecordedTotal counts events appended to the store by kind.
	EventsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ztap",
			Name:      "events_recorded_total",
			Help:      "Total security events appended to the event store by kind.",
		},
		[]string{"kind"},
	)

	// LoginAttemptsTotal counts login attempts by outcome.
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ztap",
			Name:      "login_attempts_total",
			Help:      "Total login attempts by outcome (success or failure).",
		},
		[]string{"outcome"},
	)

	// RiskAssessmentsTotal counts risk assessments by resulting level.
	RiskAssessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ztap",
			Name:      "risk_assessments_total",
			Help:      "Total risk assessments by resulting level.",
		},
		[]string{"level"},
	)

	// AccessDecisionsTotal counts access decisions by outcome.
	AccessDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ztap",
			Name:      "access_decisions_total",
			Help:      "Total access decisions by outcome (ALLOW, CHALLENGE, DENY).",
		},
		[]string{"decision"},
	)

	// AuditEntriesTotal counts entries appended to the audit chain.
	AuditEntriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ztap",
		Name:      "audit_entries_total",
		Help:      "Total entries appended to the audit chain.",
	})

	// AuditVerifyFailuresTotal counts chain verifications that found tampering.
	AuditVerifyFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ztap",
		Name:      "audit_verify_failures_total",
		Help:      "Total chain verifications that detected an integrity failure.",
	})

	// GeoLookupsTotal counts geolocation lookups by result.
	GeoLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ztap",
			Name:      "geo_lookups_total",
			Help:      "Total geolocation lookups by result (resolved, unresolved, skipped).",
		},
		[]string{"result"},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ztap", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ztap", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ztap", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ztap", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		EventsRecordedTotal,
		LoginAttemptsTotal,
		RiskAssessmentsTotal,
		AccessDecisionsTotal,
		AuditEntriesTotal,
		AuditVerifyFailuresTotal,
		GeoLookupsTotal,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
