package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"zero-trust-access-platform/internal/event/domain"
)

// Compile-time assertion.
var _ Repository = (*MemoryRepository)(nil)

type stored struct {
	seq int64
	ev  domain.Event
}

// MemoryRepository is an in-memory Repository for development and tests.
// An arrival sequence assigned under the write lock gives events with equal
// timestamps a deterministic relative order.
type MemoryRepository struct {
	mu      sync.RWMutex
	events  []stored
	nextSeq int64
}

// NewMemoryRepository returns an empty in-memory event store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Append stores a copy of the event and returns its assigned ID.
func (m *MemoryRepository) Append(ctx context.Context, ev domain.Event) (string, error) {
	cp, id := cloneWithID(ev)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stored{seq: m.nextSeq, ev: cp})
	m.nextSeq++
	return id, nil
}

// Query returns matching events newest first with stable tie-break on the
// arrival sequence.
func (m *MemoryRepository) Query(ctx context.Context, userID string, kind domain.Kind, tr TimeRange, limit int) ([]domain.Event, error) {
	// Clone inside the read lock; UpdateDeviceTrusted mutates stored events
	// in place and a caller's snapshot must not see that.
	m.mu.RLock()
	var matched []stored
	for _, s := range m.events {
		if s.ev.EventUser() != userID || s.ev.EventKind() != kind {
			continue
		}
		if !tr.Contains(s.ev.EventTime()) {
			continue
		}
		matched = append(matched, stored{seq: s.seq, ev: cloneEvent(s.ev)})
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		ti, tj := matched[i].ev.EventTime(), matched[j].ev.EventTime()
		if ti.Equal(tj) {
			return matched[i].seq > matched[j].seq
		}
		return ti.After(tj)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]domain.Event, len(matched))
	for i, s := range matched {
		out[i] = s.ev
	}
	return out, nil
}

// Latest returns the user's most recent event of the given kind.
func (m *MemoryRepository) Latest(ctx context.Context, userID string, kind domain.Kind) (domain.Event, error) {
	evs, err := m.Query(ctx, userID, kind, TimeRange{}, 1)
	if err != nil {
		return nil, err
	}
	if len(evs) == 0 {
		return nil, ErrNotFound
	}
	return evs[0], nil
}

// Count returns the number of events of the given kind for the user.
func (m *MemoryRepository) Count(ctx context.Context, userID string, kind domain.Kind) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.events {
		if s.ev.EventUser() == userID && s.ev.EventKind() == kind {
			n++
		}
	}
	return n, nil
}

// UpdateDeviceTrusted flips the trusted flag on the user's sightings of the device.
func (m *MemoryRepository) UpdateDeviceTrusted(ctx context.Context, userID, deviceID string, trusted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	for _, s := range m.events {
		d, ok := s.ev.(*domain.DeviceEvent)
		if !ok || d.UserID != userID || d.DeviceID != deviceID {
			continue
		}
		d.Trusted = trusted
		found = true
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// ListRecentFileAccess returns the newest file-access events across all users.
func (m *MemoryRepository) ListRecentFileAccess(ctx context.Context, limit int) ([]*domain.FileAccessEvent, error) {
	m.mu.RLock()
	var matched []stored
	for _, s := range m.events {
		if s.ev.EventKind() == domain.KindFileAccess {
			matched = append(matched, stored{seq: s.seq, ev: cloneEvent(s.ev)})
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		ti, tj := matched[i].ev.EventTime(), matched[j].ev.EventTime()
		if ti.Equal(tj) {
			return matched[i].seq > matched[j].seq
		}
		return ti.After(tj)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]*domain.FileAccessEvent, len(matched))
	for i, s := range matched {
		out[i] = s.ev.(*domain.FileAccessEvent)
	}
	return out, nil
}

// cloneWithID copies the event, assigning a fresh UUID if it has none.
func cloneWithID(ev domain.Event) (domain.Event, string) {
	cp := cloneEvent(ev)
	switch e := cp.(type) {
	case *domain.LoginEvent:
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		return e, e.ID
	case *domain.DeviceEvent:
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		return e, e.ID
	case *domain.FileAccessEvent:
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		return e, e.ID
	}
	return cp, ""
}

func cloneEvent(ev domain.Event) domain.Event {
	switch e := ev.(type) {
	case *domain.LoginEvent:
		cp := *e
		return &cp
	case *domain.DeviceEvent:
		cp := *e
		return &cp
	case *domain.FileAccessEvent:
		cp := *e
		return &cp
	}
	return ev
}
