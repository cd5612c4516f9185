package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accesshandler "zero-trust-access-platform/internal/access/handler"
	accessservice "zero-trust-access-platform/internal/access/service"
	analyticshandler "zero-trust-access-platform/internal/analytics/handler"
	analyticsservice "zero-trust-access-platform/internal/analytics/service"
	"zero-trust-access-platform/internal/audit"
	audithandler "zero-trust-access-platform/internal/audit/handler"
	auditrepo "zero-trust-access-platform/internal/audit/repository"
	"zero-trust-access-platform/internal/config"
	"zero-trust-access-platform/internal/db"
	eventrepo "zero-trust-access-platform/internal/event/repository"
	"zero-trust-access-platform/internal/geo"
	identityservice "zero-trust-access-platform/internal/identity/service"
	"zero-trust-access-platform/internal/metrics"
	"zero-trust-access-platform/internal/risk"
	"zero-trust-access-platform/internal/security"
	"zero-trust-access-platform/internal/server"
	"zero-trust-access-platform/internal/telemetry/otel"
	userrepo "zero-trust-access-platform/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "ztap-server", false)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shCtx)
	}()

	var (
		conn   *sql.DB
		users  userrepo.Repository
		events eventrepo.Repository
		chain  *audit.Chain
	)
	if cfg.DatabaseURL != "" {
		conn, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer conn.Close()
		users = userrepo.NewPostgresRepository(conn)
		events = eventrepo.NewPostgresRepository(conn)
		chain = audit.NewChain(auditrepo.NewPostgresRepository(conn))
		go metrics.StartDBStatsCollector(ctx, conn, 15*time.Second)
	} else {
		log.Println("DATABASE_URL not set; running on in-memory stores")
		users = userrepo.NewMemoryRepository()
		events = eventrepo.NewMemoryRepository()
		chain = audit.NewChain(auditrepo.NewMemoryRepository())
	}

	secret := cfg.JWTSecret
	if secret == "" {
		log.Println("JWT_SECRET not set; using an insecure development secret")
		secret = "ztap-dev-secret"
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	tokens := security.NewTokenProvider([]byte(secret), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	auth := identityservice.NewAuthService(users, hasher)
	engine := risk.NewEngine(events, risk.DefaultConfig())
	resolver := geo.NewHTTPResolver(cfg.GeoAPIBaseURL, cfg.GeoLookupTimeout())

	access := accessservice.NewAccessService(auth, events, chain, engine, resolver, tokens)
	access.SetDecisionEmitter(otel.NewDecisionEmitter(providers.LoggerProvider))
	analytics := analyticsservice.NewAnalyticsService(users, events, engine)

	router := server.NewRouter(server.Deps{
		Access:    accesshandler.NewHandler(access),
		Analytics: analyticshandler.NewHandler(analytics),
		Audit:     audithandler.NewHandler(chain),
		DB:        conn,
		Env:       cfg.Env,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
