package repository

import (
	"context"
	"errors"

	"zero-trust-access-platform/internal/audit/domain"
)

// ErrStorage wraps backing-store failures; chain writes are never silently dropped.
var ErrStorage = errors.New("audit store unavailable")

// Repository defines persistence for audit chain entries. Implementations
// must reject an Append whose sequence number already exists.
type Repository interface {
	// Append stores the entry. The caller (the chain recorder) guarantees the
	// sequence is tail+1; implementations enforce uniqueness.
	Append(ctx context.Context, e *domain.Entry) error
	// Tail returns the entry with the highest sequence, or nil when the chain
	// is empty. Errors only on storage failure.
	Tail(ctx context.Context) (*domain.Entry, error)
	// Get returns the entry at seq, or nil when missing.
	Get(ctx context.Context, seq uint64) (*domain.Entry, error)
	// Range returns entries with from <= seq <= to in ascending order.
	// Missing entries are simply absent from the result; the verifier treats
	// gaps as integrity violations.
	Range(ctx context.Context, from, to uint64) ([]*domain.Entry, error)
}
