// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev user already exists.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	accessservice "zero-trust-access-platform/internal/access/service"
	"zero-trust-access-platform/internal/audit"
	auditrepo "zero-trust-access-platform/internal/audit/repository"
	"zero-trust-access-platform/internal/config"
	"zero-trust-access-platform/internal/db"
	eventrepo "zero-trust-access-platform/internal/event/repository"
	"zero-trust-access-platform/internal/geo"
	identityservice "zero-trust-access-platform/internal/identity/service"
	"zero-trust-access-platform/internal/risk"
	"zero-trust-access-platform/internal/security"
	userdomain "zero-trust-access-platform/internal/user/domain"
	userrepo "zero-trust-access-platform/internal/user/repository"
)

const (
	devUsername   = "dev"
	adminUsername = "admin"
	devPassword   = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	events := eventrepo.NewPostgresRepository(conn)
	chain := audit.NewChain(auditrepo.NewPostgresRepository(conn))

	existing, err := users.GetByUsername(ctx, devUsername)
	if err != nil {
		log.Fatalf("check dev user: %v", err)
	}
	if existing != nil {
		log.Printf("seed: user %q already exists, skipping", devUsername)
		return
	}

	auth := identityservice.NewAuthService(users, security.NewHasher(cfg.BcryptCost))
	engine := risk.NewEngine(events, risk.DefaultConfig())
	tokens := security.NewTokenProvider([]byte("seed-unused"), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	resolver := geo.StaticResolver{
		"203.0.113.7": {Country: "Germany", City: "Berlin", Lat: 52.52, Lon: 13.40},
	}
	access := accessservice.NewAccessService(auth, events, chain, engine, resolver, tokens)

	if _, err := access.Register(ctx, devUsername, devPassword, userdomain.RoleUser); err != nil && !errors.Is(err, identityservice.ErrUsernameTaken) {
		log.Fatalf("seed dev user: %v", err)
	}
	if _, err := access.Register(ctx, adminUsername, devPassword, userdomain.RoleAdmin); err != nil && !errors.Is(err, identityservice.ErrUsernameTaken) {
		log.Fatalf("seed admin user: %v", err)
	}

	// Sample activity so the analytics views have something to show.
	if _, err := access.RecordLogin(ctx, devUsername, devPassword, "203.0.113.7"); err != nil {
		log.Fatalf("seed login: %v", err)
	}
	if _, err := access.RecordDeviceSighting(ctx, accessservice.DeviceSighting{
		UserID:   devUsername,
		DeviceID: "dev-laptop",
		OS:       "linux",
		Hostname: "dev-laptop",
		IP:       "203.0.113.7",
	}); err != nil {
		log.Fatalf("seed device: %v", err)
	}
	if _, err := access.RecordFileAccess(ctx, devUsername, "welcome.txt", "read", "203.0.113.7"); err != nil {
		log.Fatalf("seed file access: %v", err)
	}

	valid, err := chain.VerifyAll(ctx)
	if err != nil || !valid {
		log.Fatalf("seed: audit chain verify = (%v, %v)", valid, err)
	}

	log.Printf("seed: done at %s", time.Now().UTC().Format(time.RFC3339))
}
