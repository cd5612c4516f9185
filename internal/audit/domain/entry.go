// Package domain defines the hash-chained audit ledger entry.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// GenesisHash is the fixed previous-hash of entry 0.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry is one link of the audit chain. Entries are append-only and are
// never edited or reordered; entry n's PrevHash equals entry n-1's EntryHash.
type Entry struct {
	// Seq is monotonic and gapless, starting at 0.
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	// Payload is the canonical serialization of the recorded event.
	Payload     string `json:"payload"`
	PayloadHash string `json:"payload_hash"`
	PrevHash    string `json:"prev_hash"`
	// EntryHash = H(prev_hash || payload_hash || seq || timestamp).
	EntryHash string `json:"entry_hash"`
}

// CanonicalPayload serializes v deterministically for hashing. Callers pass
// typed structs, whose JSON field order is fixed by declaration order.
func CanonicalPayload(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical payload: %w", err)
	}
	return b, nil
}

// HashPayload returns the hex SHA-256 of the canonical payload bytes.
func HashPayload(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// ComputeEntryHash derives the entry hash from its predecessor hash, payload
// hash, sequence number, and timestamp. The timestamp contributes as UTC
// nanoseconds so the hash is stable across time zones and serializations.
func ComputeEntryHash(prevHash, payloadHash string, seq uint64, ts time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%d\n%d", prevHash, payloadHash, seq, ts.UTC().UnixNano())
	return hex.EncodeToString(h.Sum(nil))
}
