package security

import (
	"testing"
	"time"
)

func newTestProvider(ttl time.Duration) *TokenProvider {
	return NewTokenProvider([]byte("test-secret"), "ztap", "ztap-api", ttl)
}

func TestTokenProvider_IssueAndValidate(t *testing.T) {
	p := newTestProvider(time.Hour)

	token, expiresAt, err := p.Issue("alice", "admin", "LOW")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("Issue returned empty token")
	}
	if until := time.Until(expiresAt); until < 55*time.Minute || until > time.Hour {
		t.Errorf("expiresAt %v not about an hour away", expiresAt)
	}

	claims, err := p.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "alice")
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want %q", claims.Role, "admin")
	}
	if claims.RiskLevel != "LOW" {
		t.Errorf("RiskLevel = %q, want %q", claims.RiskLevel, "LOW")
	}
}

func TestTokenProvider_RejectsWrongSecret(t *testing.T) {
	p := newTestProvider(time.Hour)
	other := NewTokenProvider([]byte("other-secret"), "ztap", "ztap-api", time.Hour)

	token, _, err := p.Issue("alice", "user", "LOW")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := other.Validate(token); err != ErrInvalidToken {
		t.Errorf("Validate with wrong secret: err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_RejectsExpired(t *testing.T) {
	p := newTestProvider(-time.Minute)

	token, _, err := p.Issue("alice", "user", "LOW")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Validate(token); err != ErrInvalidToken {
		t.Errorf("Validate expired token: err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_RejectsWrongAudience(t *testing.T) {
	p := newTestProvider(time.Hour)
	other := NewTokenProvider([]byte("test-secret"), "ztap", "some-other-api", time.Hour)

	token, _, err := p.Issue("alice", "user", "LOW")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := other.Validate(token); err != ErrInvalidToken {
		t.Errorf("Validate with wrong audience: err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_RejectsGarbage(t *testing.T) {
	p := newTestProvider(time.Hour)
	if _, err := p.Validate("not.a.token"); err != ErrInvalidToken {
		t.Errorf("Validate garbage: err = %v, want ErrInvalidToken", err)
	}
}
