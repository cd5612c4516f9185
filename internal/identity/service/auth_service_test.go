package service

import (
	"context"
	"errors"
	"testing"

	"zero-trust-access-platform/internal/security"
	userdomain "zero-trust-access-platform/internal/user/domain"
	userrepo "zero-trust-access-platform/internal/user/repository"
)

func newService() *AuthService {
	// bcrypt min cost keeps the tests fast.
	return NewAuthService(userrepo.NewMemoryRepository(), security.NewHasher(4))
}

func TestRegisterAndVerify(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "Alice", "correct-horse", "user")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("username = %q, want normalized %q", u.Username, "alice")
	}
	if u.PasswordHash == "" || u.PasswordHash == "correct-horse" {
		t.Error("credential not hashed")
	}

	ok, got, err := svc.Verify(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Error("Verify = false for correct credentials")
	}
	if got == nil || got.ID != u.ID {
		t.Error("Verify did not return the registered user")
	}
}

func TestVerify_WrongPasswordAndUnknownUser(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "bob", "password123", "user"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ok, _, err := svc.Verify(ctx, "bob", "wrong")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("Verify = true for wrong password")
	}

	ok, u, err := svc.Verify(ctx, "nobody", "password123")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok || u != nil {
		t.Error("Verify succeeded for unknown user")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "x", "password123", "user"); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("short username err = %v, want ErrInvalidUsername", err)
	}
	if _, err := svc.Register(ctx, "carol", "short", "user"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password err = %v, want ErrWeakPassword", err)
	}
	if _, err := svc.Register(ctx, "carol", "password123", "user"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "carol", "password123", "user"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate username err = %v, want ErrUsernameTaken", err)
	}
}

// errRepo simulates an unavailable user store.
type errRepo struct{}

func (errRepo) GetByUsername(ctx context.Context, username string) (*userdomain.User, error) {
	return nil, errors.New("backend down")
}

func (errRepo) Create(ctx context.Context, u *userdomain.User) error {
	return errors.New("backend down")
}

func TestVerify_BackendFailurePropagates(t *testing.T) {
	svc := NewAuthService(errRepo{}, security.NewHasher(4))
	_, _, err := svc.Verify(context.Background(), "alice", "pw")
	if err == nil {
		t.Error("Verify swallowed a backend failure; must propagate as login failure")
	}
}
