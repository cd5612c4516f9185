package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"zero-trust-access-platform/internal/audit/domain"
)

// Compile-time assertion.
var _ Repository = (*PostgresRepository)(nil)

// advisoryLockKey serializes chain appends across processes. The in-process
// recorder mutex alone is not enough when several server instances share one
// database.
const advisoryLockKey = 0x7a746170 // "ztap"

// PostgresRepository persists the audit chain in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a chain store backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append stores the entry inside a transaction holding the chain advisory
// lock, and rejects the write if the sequence is not exactly tail+1.
func (r *PostgresRepository) Append(ctx context.Context, e *domain.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryLockKey); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var tail sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(seq) FROM audit_entries`).Scan(&tail); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	var next uint64
	if tail.Valid {
		next = uint64(tail.Int64) + 1
	}
	if e.Seq != next {
		return fmt.Errorf("append out of order: seq %d, expected %d", e.Seq, next)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO audit_entries (seq, ts, payload, payload_hash, prev_hash, entry_hash)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.Seq, e.Timestamp, e.Payload, e.PayloadHash, e.PrevHash, e.EntryHash,
	); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// Tail returns the highest-sequence entry, or nil when the chain is empty.
func (r *PostgresRepository) Tail(ctx context.Context) (*domain.Entry, error) {
	e := &domain.Entry{}
	err := r.db.QueryRowContext(ctx, `
		SELECT seq, ts, payload, payload_hash, prev_hash, entry_hash
		FROM audit_entries ORDER BY seq DESC LIMIT 1`,
	).Scan(&e.Seq, &e.Timestamp, &e.Payload, &e.PayloadHash, &e.PrevHash, &e.EntryHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return e, nil
}

// Get returns the entry at seq, or nil when missing.
func (r *PostgresRepository) Get(ctx context.Context, seq uint64) (*domain.Entry, error) {
	e := &domain.Entry{}
	err := r.db.QueryRowContext(ctx, `
		SELECT seq, ts, payload, payload_hash, prev_hash, entry_hash
		FROM audit_entries WHERE seq = $1`, seq,
	).Scan(&e.Seq, &e.Timestamp, &e.Payload, &e.PayloadHash, &e.PrevHash, &e.EntryHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return e, nil
}

// Range returns entries from..to ascending.
func (r *PostgresRepository) Range(ctx context.Context, from, to uint64) ([]*domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, ts, payload, payload_hash, prev_hash, entry_hash
		FROM audit_entries WHERE seq >= $1 AND seq <= $2 ORDER BY seq ASC`, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []*domain.Entry
	for rows.Next() {
		e := &domain.Entry{}
		if err := rows.Scan(&e.Seq, &e.Timestamp, &e.Payload, &e.PayloadHash, &e.PrevHash, &e.EntryHash); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return out, nil
}
