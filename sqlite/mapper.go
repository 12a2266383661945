package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/asaidimu/go-hobbies/core/persistence"
	"github.com/mattn/go-sqlite3"
)

// schemaStatements creates the tables used by the store. Every statement is
// idempotent so Migrate can run on each start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS hobby_types (
    id          TEXT PRIMARY KEY,
    owner       TEXT NOT NULL,
    name        TEXT NOT NULL,
    slug        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    icon        TEXT NOT NULL DEFAULT '',
    color       TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    UNIQUE (owner, name),
    UNIQUE (owner, slug)
);`,
	`CREATE TABLE IF NOT EXISTS fields (
    id            TEXT PRIMARY KEY,
    hobby_type_id TEXT NOT NULL REFERENCES hobby_types(id) ON DELETE CASCADE,
    key           TEXT NOT NULL,
    field_order   INTEGER NOT NULL DEFAULT 0,
    definition    TEXT NOT NULL,
    created_at    TEXT NOT NULL,
    UNIQUE (hobby_type_id, key)
);`,
	`CREATE TABLE IF NOT EXISTS entries (
    id            TEXT PRIMARY KEY,
    owner         TEXT NOT NULL,
    hobby_type_id TEXT NOT NULL REFERENCES hobby_types(id) ON DELETE CASCADE,
    title         TEXT NOT NULL UNIQUE,
    status        TEXT NOT NULL,
    data          TEXT NOT NULL DEFAULT '{}',
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS tags (
    id         TEXT PRIMARY KEY,
    owner      TEXT NOT NULL,
    name       TEXT NOT NULL,
    slug       TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (owner, name),
    UNIQUE (owner, slug)
);`,
	`CREATE TABLE IF NOT EXISTS entry_tags (
    entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
    tag_id   TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    PRIMARY KEY (entry_id, tag_id)
);`,
	`CREATE TABLE IF NOT EXISTS saved_views (
    id            TEXT PRIMARY KEY,
    owner         TEXT NOT NULL,
    hobby_type_id TEXT NOT NULL REFERENCES hobby_types(id) ON DELETE CASCADE,
    name          TEXT NOT NULL,
    filters       TEXT NOT NULL DEFAULT '{}',
    sort          TEXT NOT NULL DEFAULT '[]',
    created_at    TEXT NOT NULL,
    UNIQUE (owner, hobby_type_id, name)
);`,
	`CREATE INDEX IF NOT EXISTS idx_entries_owner_type ON entries (owner, hobby_type_id);`,
	`CREATE INDEX IF NOT EXISTS idx_fields_type ON fields (hobby_type_id, field_order);`,
}

// Migrate creates any missing table or index. The statements run in one
// transaction so a failure leaves the database untouched.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if s.tx != nil {
		return fmt.Errorf("migrate not applicable: in a transactional context")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute SQL statement '%s': %w", stmt, err)
		}
	}
	return tx.Commit()
}

// TableExists checks if a table exists in the database.
func (s *SQLiteStore) TableExists(ctx context.Context, table string) (bool, error) {
	var name string
	err := s.runner().QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?;", table).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// translateError maps driver errors to the persistence sentinels.
func translateError(kind string, err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%s: %w", kind, persistence.ErrConflict)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s references a missing object: %w", kind, persistence.ErrNotFound)
		}
	}
	return err
}

// timeLayout has a fixed width so stored timestamps order as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp '%s': %w", s, err)
	}
	return t, nil
}

// encodeJSON serialises a column value, writing fallback for nil.
func encodeJSON(v any, fallback string) (string, error) {
	if v == nil {
		return fallback, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return fallback, nil
	}
	return string(b), nil
}

func decodeJSON(raw string, into any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), into)
}
