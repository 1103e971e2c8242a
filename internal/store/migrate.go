package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo collection names.
const (
	UsersCollection      = "users"
	AttendanceCollection = "attendance"
	AuditCollection      = "attendance_audit"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	department    TEXT NOT NULL DEFAULT '',
	subjects      JSONB NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance_records (
	user_id    TEXT NOT NULL REFERENCES accounts(id),
	date       TEXT NOT NULL,
	classes    JSONB NOT NULL DEFAULT '[]',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, date)
);

CREATE TABLE IF NOT EXISTS attendance_audit (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	date         TEXT NOT NULL,
	classes      JSONB NOT NULL DEFAULT '[]',
	source       TEXT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attendance_audit_user ON attendance_audit(user_id, submitted_at);
`

// MigratePostgres creates the tables if they are missing.
func MigratePostgres(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

// EnsureMongoIndexes creates the unique indexes the repositories rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users email index: %w", err)
	}
	if _, err := db.Collection(AttendanceCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("attendance key index: %w", err)
	}
	if _, err := db.Collection(AuditCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "submitted_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("audit index: %w", err)
	}
	return nil
}
