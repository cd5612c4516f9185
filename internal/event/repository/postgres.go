package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"zero-trust-access-platform/internal/event/domain"
)

// Compile-time assertion.
var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository persists events in Postgres, one table per event kind.
// The bigserial seq column supplies the stable tie-break order for events
// that share a timestamp.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an event store backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Column lists shared by the INSERT and SELECT statements for each table, so
// reads and writes cannot drift from each other or from the migration DDL.
const (
	loginEventColumns      = "id, user_id, ts, ip, success, country, city, lat, lon"
	deviceEventColumns     = "id, user_id, device_id, mac, os, wifi_ssid, hostname, ip, trusted, first_seen"
	fileAccessEventColumns = "id, user_id, file_name, action, ip, ts"
)

// Append stores the event and returns its assigned ID.
func (r *PostgresRepository) Append(ctx context.Context, ev domain.Event) (string, error) {
	var err error
	var id string
	switch e := ev.(type) {
	case *domain.LoginEvent:
		id = orNewID(e.ID)
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO login_events (`+loginEventColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id, e.UserID, e.Timestamp, e.IP, e.Success, e.Country, e.City, e.Lat, e.Lon,
		)
	case *domain.DeviceEvent:
		id = orNewID(e.ID)
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO device_events (`+deviceEventColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			id, e.UserID, e.DeviceID, e.MAC, e.OS, e.WifiSSID, e.Hostname, e.IP, e.Trusted, e.FirstSeen,
		)
	case *domain.FileAccessEvent:
		id = orNewID(e.ID)
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO file_access_events (`+fileAccessEventColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, e.UserID, e.FileName, e.Action, e.IP, e.Timestamp,
		)
	default:
		return "", fmt.Errorf("unsupported event kind %q", ev.EventKind())
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return id, nil
}

// Query returns matching events newest first.
func (r *PostgresRepository) Query(ctx context.Context, userID string, kind domain.Kind, tr TimeRange, limit int) ([]domain.Event, error) {
	switch kind {
	case domain.KindLogin:
		return r.queryLogins(ctx, userID, tr, limit)
	case domain.KindDevice:
		return r.queryDevices(ctx, userID, tr, limit)
	case domain.KindFileAccess:
		return r.queryFileAccess(ctx, userID, tr, limit)
	}
	return nil, fmt.Errorf("unsupported event kind %q", kind)
}

// Latest returns the user's most recent event of the given kind.
func (r *PostgresRepository) Latest(ctx context.Context, userID string, kind domain.Kind) (domain.Event, error) {
	evs, err := r.Query(ctx, userID, kind, TimeRange{}, 1)
	if err != nil {
		return nil, err
	}
	if len(evs) == 0 {
		return nil, ErrNotFound
	}
	return evs[0], nil
}

// Count returns the number of events of the given kind for the user.
func (r *PostgresRepository) Count(ctx context.Context, userID string, kind domain.Kind) (int, error) {
	table, userCol := tableFor(kind)
	if table == "" {
		return 0, fmt.Errorf("unsupported event kind %q", kind)
	}
	var n int
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, table, userCol), userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return n, nil
}

// UpdateDeviceTrusted flips the trusted flag on the user's sightings of the device.
func (r *PostgresRepository) UpdateDeviceTrusted(ctx context.Context, userID, deviceID string, trusted bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE device_events SET trusted = $3 WHERE user_id = $1 AND device_id = $2`,
		userID, deviceID, trusted,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecentFileAccess returns the newest file-access events across all users.
func (r *PostgresRepository) ListRecentFileAccess(ctx context.Context, limit int) ([]*domain.FileAccessEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+fileAccessEventColumns+`
		FROM file_access_events ORDER BY ts DESC, seq DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []*domain.FileAccessEvent
	for rows.Next() {
		e := &domain.FileAccessEvent{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.FileName, &e.Action, &e.IP, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return out, nil
}

func (r *PostgresRepository) queryLogins(ctx context.Context, userID string, tr TimeRange, limit int) ([]domain.Event, error) {
	q, args := boundedQuery(`
		SELECT `+loginEventColumns+`
		FROM login_events WHERE user_id = $1`, "ts", userID, tr, limit)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		e := &domain.LoginEvent{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Timestamp, &e.IP, &e.Success, &e.Country, &e.City, &e.Lat, &e.Lon); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return out, nil
}

func (r *PostgresRepository) queryDevices(ctx context.Context, userID string, tr TimeRange, limit int) ([]domain.Event, error) {
	q, args := boundedQuery(`
		SELECT `+deviceEventColumns+`
		FROM device_events WHERE user_id = $1`, "first_seen", userID, tr, limit)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		e := &domain.DeviceEvent{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.DeviceID, &e.MAC, &e.OS, &e.WifiSSID, &e.Hostname, &e.IP, &e.Trusted, &e.FirstSeen); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return out, nil
}

func (r *PostgresRepository) queryFileAccess(ctx context.Context, userID string, tr TimeRange, limit int) ([]domain.Event, error) {
	q, args := boundedQuery(`
		SELECT `+fileAccessEventColumns+`
		FROM file_access_events WHERE user_id = $1`, "ts", userID, tr, limit)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		e := &domain.FileAccessEvent{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.FileName, &e.Action, &e.IP, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return out, nil
}

// boundedQuery appends range predicates, ordering, and limit to a base query.
// tsCol is the timestamp column; seq breaks ties newest-arrival-first.
func boundedQuery(base, tsCol, userID string, tr TimeRange, limit int) (string, []any) {
	args := []any{userID}
	q := base
	if !tr.From.IsZero() {
		args = append(args, tr.From)
		q += fmt.Sprintf(" AND %s >= $%d", tsCol, len(args))
	}
	if !tr.To.IsZero() {
		args = append(args, tr.To)
		q += fmt.Sprintf(" AND %s <= $%d", tsCol, len(args))
	}
	q += fmt.Sprintf(" ORDER BY %s DESC, seq DESC", tsCol)
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return q, args
}

func orNewID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

func tableFor(kind domain.Kind) (table, userCol string) {
	switch kind {
	case domain.KindLogin:
		return "login_events", "user_id"
	case domain.KindDevice:
		return "device_events", "user_id"
	case domain.KindFileAccess:
		return "file_access_events", "user_id"
	}
	return "", ""
}
