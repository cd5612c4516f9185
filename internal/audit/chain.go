// Package audit implements the tamper-evident, hash-chained ledger of
// security events. Every recorded event is hashed into the chain; the chain
// owns only hashes and sequence metadata, never the event records themselves.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"zero-trust-access-platform/internal/audit/domain"
	auditrepo "zero-trust-access-platform/internal/audit/repository"
)

var (
	// ErrIntegrity reports a verification failure: a hash mismatch, a broken
	// link, or a gap in the sequence. Never auto-repaired, always surfaced.
	ErrIntegrity = errors.New("audit chain integrity violation")
	// ErrRange reports a verify request for sequence numbers the chain does
	// not (yet) contain.
	ErrRange = errors.New("audit chain range out of bounds")
)

// Chain records events into the hash-linked ledger and verifies stored
// prefixes. Record is globally serialized; each entry depends on the
// predecessor's hash, so concurrent unsynchronized appends would corrupt the
// chain. Verify and Entries are read-only and may run concurrently with
// Record against a snapshot prefix.
type Chain struct {
	repo auditrepo.Repository

	// mu is the one true critical section: read tail, compute, append.
	mu  sync.Mutex
	now func() time.Time
}

// NewChain returns a Chain over the given repository.
func NewChain(repo auditrepo.Repository) *Chain {
	return &Chain{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Record hashes the payload's canonical serialization and appends a new entry
// linked to the current tail. payload must be a typed struct; its JSON field
// order makes the serialization canonical.
func (c *Chain) Record(ctx context.Context, payload any) (*domain.Entry, error) {
	canonical, err := domain.CanonicalPayload(payload)
	if err != nil {
		return nil, err
	}
	payloadHash := domain.HashPayload(canonical)

	c.mu.Lock()
	defer c.mu.Unlock()

	tail, err := c.repo.Tail(ctx)
	if err != nil {
		return nil, err
	}
	var seq uint64
	prev := domain.GenesisHash
	if tail != nil {
		seq = tail.Seq + 1
		prev = tail.EntryHash
	}
	// Microsecond precision: timestamptz cannot store nanoseconds, and the
	// entry hash must survive a round trip through the store.
	ts := c.now().Truncate(time.Microsecond)
	entry := &domain.Entry{
		Seq:         seq,
		Timestamp:   ts,
		Payload:     string(canonical),
		PayloadHash: payloadHash,
		PrevHash:    prev,
		EntryHash:   domain.ComputeEntryHash(prev, payloadHash, seq, ts),
	}
	if err := c.repo.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Verify recomputes every entry hash in [from, to] and checks the links to
// each predecessor. Returns (false, ErrIntegrity) on any mismatch, gap, or
// missing entry; (false, ErrRange) when the requested range does not exist.
// Read-only: operates on the prefix observed at call start.
func (c *Chain) Verify(ctx context.Context, from, to uint64) (bool, error) {
	if from > to {
		return false, fmt.Errorf("%w: from %d > to %d", ErrRange, from, to)
	}
	tail, err := c.repo.Tail(ctx)
	if err != nil {
		return false, err
	}
	if tail == nil || to > tail.Seq {
		return false, fmt.Errorf("%w: verify [%d,%d] on chain with tail %v", ErrRange, from, to, tailSeq(tail))
	}

	entries, err := c.repo.Range(ctx, from, to)
	if err != nil {
		return false, err
	}
	if uint64(len(entries)) != to-from+1 {
		return false, fmt.Errorf("%w: expected %d entries in [%d,%d], found %d", ErrIntegrity, to-from+1, from, to, len(entries))
	}

	prev := domain.GenesisHash
	if from > 0 {
		pred, err := c.repo.Get(ctx, from-1)
		if err != nil {
			return false, err
		}
		if pred == nil {
			return false, fmt.Errorf("%w: predecessor %d missing", ErrIntegrity, from-1)
		}
		prev = pred.EntryHash
	}

	expect := from
	for _, e := range entries {
		if e.Seq != expect {
			return false, fmt.Errorf("%w: sequence gap at %d (found %d)", ErrIntegrity, expect, e.Seq)
		}
		if e.PrevHash != prev {
			return false, fmt.Errorf("%w: broken link at seq %d", ErrIntegrity, e.Seq)
		}
		// Record always stores the canonical payload, so an erased payload
		// must fail the hash check rather than skip it.
		if domain.HashPayload([]byte(e.Payload)) != e.PayloadHash {
			return false, fmt.Errorf("%w: payload hash mismatch at seq %d", ErrIntegrity, e.Seq)
		}
		if domain.ComputeEntryHash(e.PrevHash, e.PayloadHash, e.Seq, e.Timestamp) != e.EntryHash {
			return false, fmt.Errorf("%w: entry hash mismatch at seq %d", ErrIntegrity, e.Seq)
		}
		prev = e.EntryHash
		expect++
	}
	return true, nil
}

// VerifyAll verifies the whole chain as of call start. An empty chain is valid.
func (c *Chain) VerifyAll(ctx context.Context) (bool, error) {
	tail, err := c.repo.Tail(ctx)
	if err != nil {
		return false, err
	}
	if tail == nil {
		return true, nil
	}
	return c.Verify(ctx, 0, tail.Seq)
}

// Entries returns the stored entries in [from, to] ascending, for read-side
// inspection of the ledger.
func (c *Chain) Entries(ctx context.Context, from, to uint64) ([]*domain.Entry, error) {
	return c.repo.Range(ctx, from, to)
}

// Tail returns the current tail entry, or nil when the chain is empty.
func (c *Chain) Tail(ctx context.Context) (*domain.Entry, error) {
	return c.repo.Tail(ctx)
}

func tailSeq(tail *domain.Entry) any {
	if tail == nil {
		return "empty"
	}
	return tail.Seq
}
