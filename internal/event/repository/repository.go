package repository

import (
	"context"
	"errors"
	"time"

	"zero-trust-access-platform/internal/event/domain"
)

// Sentinel errors. ErrStorage wraps backing-store failures so callers can
// distinguish them from domain outcomes; writes are never silently dropped.
var (
	ErrStorage  = errors.New("event store unavailable")
	ErrNotFound = errors.New("event not found")
)

// TimeRange bounds a query. Zero From or To means unbounded on that side.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Repository is the append-only event store. Events are never mutated or
// deleted through this interface; the one exception is the device trust flag,
// which an explicit administrative grant may flip.
type Repository interface {
	// Append stores the event and returns its assigned ID. Two events for the
	// same user with the same timestamp keep a stable arrival order.
	Append(ctx context.Context, ev domain.Event) (string, error)
	// Query returns the user's events of the given kind inside the range,
	// newest first, at most limit entries (limit <= 0 means no cap).
	Query(ctx context.Context, userID string, kind domain.Kind, tr TimeRange, limit int) ([]domain.Event, error)
	// Latest returns the user's most recent event of the given kind, or
	// ErrNotFound.
	Latest(ctx context.Context, userID string, kind domain.Kind) (domain.Event, error)
	// Count returns how many events of the given kind the user has.
	Count(ctx context.Context, userID string, kind domain.Kind) (int, error)
	// UpdateDeviceTrusted flips the trusted flag on all sightings of the given
	// device for the user. Trust-grant hook; returns ErrNotFound when the user
	// has no sighting of that device.
	UpdateDeviceTrusted(ctx context.Context, userID, deviceID string, trusted bool) error
	// ListRecentFileAccess returns the newest file-access events across all
	// users, newest first, at most limit entries.
	ListRecentFileAccess(ctx context.Context, limit int) ([]*domain.FileAccessEvent, error)
}
