package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"zero-trust-access-platform/internal/user/domain"
)

// Compile-time assertion.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory user store for development and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewMemoryRepository returns an empty in-memory user store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*domain.User)}
}

// GetByUsername returns the user, or nil if not found.
func (m *MemoryRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// Create stores the user; the username must be unused.
func (m *MemoryRepository) Create(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return fmt.Errorf("username %q already exists", u.Username)
	}
	cp := *u
	m.users[u.Username] = &cp
	return nil
}

// List returns all users ordered by creation time.
func (m *MemoryRepository) List(ctx context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Username < out[j].Username
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
