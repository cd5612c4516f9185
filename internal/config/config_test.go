package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "ztap-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "ztap-auth")
	}
	if cfg.JWTAudience != "ztap-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "ztap-api")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.GeoAPIBaseURL != "http://ip-api.com" {
		t.Errorf("GeoAPIBaseURL = %q, want default", cfg.GeoAPIBaseURL)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "10")
	os.Setenv("GEO_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.GeoLookupTimeout() != 5*time.Second {
		t.Errorf("GeoLookupTimeout = %v, want 5s", cfg.GeoLookupTimeout())
	}
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Error("Load should reject BCRYPT_COST out of range")
	}
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Error("Load should require JWT_SECRET in production")
	}

	os.Setenv("JWT_SECRET", "super-secret")
	if _, err := Load(); err != nil {
		t.Errorf("Load with secret: %v", err)
	}
}

func TestAccessTTL(t *testing.T) {
	tests := []struct {
		ttl  string
		want time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"", 15 * time.Minute},
		{"garbage", 15 * time.Minute},
		{"-5m", 15 * time.Minute},
	}
	for _, tt := range tests {
		cfg := &Config{JWTAccessTTL: tt.ttl}
		if got := cfg.AccessTTL(); got != tt.want {
			t.Errorf("AccessTTL(%q) = %v, want %v", tt.ttl, got, tt.want)
		}
	}
}
