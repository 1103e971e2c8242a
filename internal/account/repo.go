package account

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"track75/internal/store"
)

const uniqueViolation = "23505"

// PostgresRepository persists accounts in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateAccount inserts a new account row.
func (r *PostgresRepository) CreateAccount(ctx context.Context, acc *Account) error {
	subjects, err := json.Marshal(nonNil(acc.Subjects))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, department, subjects, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, acc.ID, acc.Username, acc.Email, acc.PasswordHash, acc.Department, subjects, acc.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return store.Unavailable(err)
}

// AccountByEmail returns nil when no account uses email.
func (r *PostgresRepository) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	return r.one(ctx, `
		SELECT id, username, email, password_hash, department, subjects, created_at
		FROM accounts WHERE email = $1
	`, email)
}

// AccountByID returns nil when id does not exist.
func (r *PostgresRepository) AccountByID(ctx context.Context, id string) (*Account, error) {
	return r.one(ctx, `
		SELECT id, username, email, password_hash, department, subjects, created_at
		FROM accounts WHERE id = $1
	`, id)
}

// UpdateProfile overwrites department and subjects.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, department string, subjects []string) error {
	raw, err := json.Marshal(nonNil(subjects))
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET department = $2, subjects = $3 WHERE id = $1
	`, id, department, raw)
	if err != nil {
		return store.Unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Unavailable(err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) one(ctx context.Context, query string, arg string) (*Account, error) {
	var (
		acc Account
		raw []byte
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&acc.ID, &acc.Username, &acc.Email, &acc.PasswordHash, &acc.Department, &raw, &acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, store.Unavailable(err)
	}
	if err := json.Unmarshal(raw, &acc.Subjects); err != nil {
		return nil, err
	}
	return &acc, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
