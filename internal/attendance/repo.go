package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"track75/internal/store"
)

// Repository persists attendance records.
type Repository interface {
	// UpsertRecord writes rec, replacing any record for the same user and date.
	UpsertRecord(ctx context.Context, rec Record) error
	// GetRecord returns nil when no record exists for the key.
	GetRecord(ctx context.Context, userID, date string) (*Record, error)
	// ListRecords returns every record the user has, in no particular order.
	ListRecords(ctx context.Context, userID string) ([]Record, error)
	AppendAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, userID string, limit int) ([]AuditEntry, error)
}

// PostgresRepository persists attendance data in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertRecord replaces the classes list for (user_id, date).
func (r *PostgresRepository) UpsertRecord(ctx context.Context, rec Record) error {
	classes, err := json.Marshal(nonNil(rec.Classes))
	if err != nil {
		return err
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (user_id, date, classes, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, date) DO UPDATE SET
			classes = EXCLUDED.classes,
			updated_at = EXCLUDED.updated_at
	`, rec.UserID, rec.Date, classes, rec.UpdatedAt)
	return store.Unavailable(err)
}

// GetRecord returns the record for a single day.
func (r *PostgresRepository) GetRecord(ctx context.Context, userID, date string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, date, classes, updated_at
		FROM attendance_records WHERE user_id = $1 AND date = $2
	`, userID, date)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListRecords returns all of a user's records.
func (r *PostgresRepository) ListRecords(ctx context.Context, userID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, date, classes, updated_at
		FROM attendance_records WHERE user_id = $1
		ORDER BY date
	`, userID)
	if err != nil {
		return nil, store.Unavailable(err)
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, store.Unavailable(rows.Err())
}

// AppendAudit writes one submission to the audit table.
func (r *PostgresRepository) AppendAudit(ctx context.Context, entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	classes, err := json.Marshal(nonNil(entry.Classes))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO attendance_audit (id, user_id, date, classes, source, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, entry.ID, entry.UserID, entry.Date, classes, entry.Source, entry.SubmittedAt)
	return store.Unavailable(err)
}

// ListAudit returns the newest submissions first.
func (r *PostgresRepository) ListAudit(ctx context.Context, userID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, date, classes, source, submitted_at
		FROM attendance_audit WHERE user_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, store.Unavailable(err)
	}
	defer rows.Close()
	var res []AuditEntry
	for rows.Next() {
		var (
			e   AuditEntry
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &raw, &e.Source, &e.SubmittedAt); err != nil {
			return nil, store.Unavailable(err)
		}
		if err := json.Unmarshal(raw, &e.Classes); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, store.Unavailable(rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord wraps driver errors with store.ErrUnavailable. A stored classes
// payload that does not decode is returned as is.
func scanRecord(s scanner) (Record, error) {
	var (
		rec Record
		raw []byte
	)
	if err := s.Scan(&rec.UserID, &rec.Date, &raw, &rec.UpdatedAt); err != nil {
		return Record{}, store.Unavailable(err)
	}
	if err := json.Unmarshal(raw, &rec.Classes); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func nonNil(classes []ClassEntry) []ClassEntry {
	if classes == nil {
		return []ClassEntry{}
	}
	return classes
}
