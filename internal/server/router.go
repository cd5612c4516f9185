// Package server assembles the HTTP router: middleware, feature handlers,
// health, and metrics.
package server

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	accesshandler "zero-trust-access-platform/internal/access/handler"
	analyticshandler "zero-trust-access-platform/internal/analytics/handler"
	audithandler "zero-trust-access-platform/internal/audit/handler"
	"zero-trust-access-platform/internal/metrics"
)

// Deps holds the handlers and optional dependencies the router wires up.
type Deps struct {
	Access    *accesshandler.Handler
	Analytics *analyticshandler.Handler
	Audit     *audithandler.Handler
	// DB is pinged by the health endpoint when set. Nil when running on
	// in-memory stores.
	DB *sql.DB
	// Env selects the gin mode; "production" runs in release mode.
	Env string
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogMiddleware())
	r.Use(metrics.Middleware())

	r.GET("/health", healthHandler(deps.DB))
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/")
	deps.Access.RegisterRoutes(api)
	deps.Analytics.RegisterRoutes(api)
	deps.Audit.RegisterRoutes(api)

	return r
}

// requestLogMiddleware logs one line per request.
func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// healthHandler reports liveness and, when a database is configured,
// readiness of the connection.
func healthHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if db != nil {
			if err := db.PingContext(c.Request.Context()); err != nil {
				body["status"] = "degraded"
				body["database"] = "unreachable"
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
			body["database"] = "ok"
		}
		c.JSON(http.StatusOK, body)
	}
}
