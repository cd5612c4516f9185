package domain

import (
	"errors"
	"time"
)

// User is the core user entity. PasswordHash is an opaque credential
// reference; plaintext credentials never reach the core.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Validate validates the user for persistence. Returns an error describing
// the first validation failure.
func (u *User) Validate() error {
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.PasswordHash == "" {
		return errors.New("credential reference is required")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Role != RoleUser && u.Role != RoleAdmin {
		return errors.New("role must be user or admin")
	}
	return nil
}

// AccessibleResources lists the resources the role may reach. Surfaced by
// the per-user analytics view.
func (u *User) AccessibleResources() []string {
	base := []string{"dashboard", "profile", "reports", "analytics"}
	if u.Role == RoleAdmin {
		return append(base, "admin")
	}
	return base
}
