package repository

import (
	"context"
	"fmt"
	"sync"

	"zero-trust-access-platform/internal/audit/domain"
)

// Compile-time assertion.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory chain store for development and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []*domain.Entry
}

// NewMemoryRepository returns an empty in-memory chain store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Append stores the entry; the sequence must be exactly tail+1.
func (m *MemoryRepository) Append(ctx context.Context, e *domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uint64(len(m.entries)) != e.Seq {
		return fmt.Errorf("append out of order: seq %d, tail %d", e.Seq, len(m.entries))
	}
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

// Tail returns the highest-sequence entry, or nil when empty.
func (m *MemoryRepository) Tail(ctx context.Context) (*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.entries) == 0 {
		return nil, nil
	}
	cp := *m.entries[len(m.entries)-1]
	return &cp, nil
}

// Get returns the entry at seq, or nil when missing.
func (m *MemoryRepository) Get(ctx context.Context, seq uint64) (*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.Seq == seq {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

// Range returns entries from..to ascending.
func (m *MemoryRepository) Range(ctx context.Context, from, to uint64) ([]*domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Entry
	for _, e := range m.entries {
		if e.Seq < from || e.Seq > to {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// Tamper overwrites the stored entry at seq in place. Test hook for
// exercising out-of-band mutation detection; not part of the Repository
// interface and never called by production code.
func (m *MemoryRepository) Tamper(seq uint64, mutate func(*domain.Entry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Seq == seq {
			mutate(e)
			return
		}
	}
}

// Drop removes the entry at seq, leaving a gap. Test hook.
func (m *MemoryRepository) Drop(seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.Seq == seq {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}
