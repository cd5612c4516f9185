package repository

import (
	"context"
	"errors"

	"zero-trust-access-platform/internal/user/domain"
)

// ErrStorage wraps backing-store failures.
var ErrStorage = errors.New("user store unavailable")

// Repository defines persistence for users. Users are never deleted.
type Repository interface {
	// GetByUsername returns the user, or nil if not found. Errors only on
	// database failures, not for missing rows.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]*domain.User, error)
}
