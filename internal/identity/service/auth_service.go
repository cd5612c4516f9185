// Package service implements registration and local credential verification.
// The scoring/audit core consumes only the verifier's boolean outcome; the
// verifier itself is a replaceable collaborator.
package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"zero-trust-access-platform/internal/security"
	userdomain "zero-trust-access-platform/internal/user/domain"
)

// Sentinel errors; handlers map them to HTTP statuses.
var (
	ErrUsernameTaken   = errors.New("username already registered")
	ErrInvalidUsername = errors.New("username must be 3-64 characters: letters, digits, dot, dash, underscore")
	ErrWeakPassword    = errors.New("password must be at least 8 characters")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,64}$`)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// CredentialVerifier checks a presented credential for a username. ok is
// false for unknown users and wrong credentials alike; err only for backend
// failures, which callers must treat as a failed login, never a silent allow.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (ok bool, u *userdomain.User, err error)
}

// AuthService implements registration and acts as the local
// CredentialVerifier over the user repository.
type AuthService struct {
	userRepo UserRepo
	hasher   *security.Hasher
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(userRepo UserRepo, hasher *security.Hasher) *AuthService {
	return &AuthService{userRepo: userRepo, hasher: hasher}
}

// Register creates a user with the given username, password, and role.
func (s *AuthService) Register(ctx context.Context, username, password string, role userdomain.Role) (*userdomain.User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	u := &userdomain.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hashed,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Verify checks the presented password against the stored hash. Unknown
// users and mismatches both return (false, nil, nil); only backend failures
// return an error.
func (s *AuthService) Verify(ctx context.Context, username, password string) (bool, *userdomain.User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || password == "" {
		return false, nil, nil
	}
	u, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return false, nil, err
	}
	if u == nil || u.PasswordHash == "" {
		return false, nil, nil
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(password)); err != nil {
		return false, u, nil
	}
	return true, u, nil
}
