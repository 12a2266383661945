// Package sqlite provides a concrete implementation of the persistence.Store
// interface for SQLite databases. It handles connecting to, migrating and
// querying the database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asaidimu/go-hobbies/core/persistence"
	"go.uber.org/zap"
)

// dbRunner is an interface that abstracts the common methods of *sql.DB and *sql.Tx,
// allowing for the same code to be used for both transactional and non-transactional
// database operations.
type dbRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore is a concrete implementation of the persistence.Store interface
// for SQLite. It can operate in both transactional and non-transactional modes.
type SQLiteStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *zap.Logger
}

// Ensure SQLiteStore implements the persistence.Store interface.
var _ persistence.Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new instance of the SQLiteStore. It can be
// configured to operate in transactional mode by providing a non-nil *sql.Tx.
func NewSQLiteStore(db *sql.DB, logger *zap.Logger, tx *sql.Tx) *SQLiteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteStore{db: db, tx: tx, logger: logger}
}

// Open opens the database at path, enables foreign keys and creates the
// tables. Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", path, err)
	}
	// One connection keeps in-memory databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db, logger, nil)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Debug("Database ready", zap.String("path", path))
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.tx != nil {
		return fmt.Errorf("close not applicable: in a transactional context")
	}
	return s.db.Close()
}

// runner returns the appropriate dbRunner for the current context, either the
// database connection pool or the active transaction.
func (s *SQLiteStore) runner() dbRunner {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *SQLiteStore) exec(ctx context.Context, kind, stmt string, args ...any) (sql.Result, error) {
	s.logger.Debug("Executing SQL", zap.String("sql", stmt), zap.Any("params", args))
	res, err := s.runner().ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, translateError(kind, err)
	}
	return res, nil
}

// execOne runs a statement that must touch exactly one row.
func (s *SQLiteStore) execOne(ctx context.Context, kind, id, stmt string, args ...any) error {
	res, err := s.exec(ctx, kind, stmt, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s '%s': %w", kind, id, persistence.ErrNotFound)
	}
	return nil
}

// StartTransaction begins a new database transaction and returns a new
// SQLiteStore that is scoped to that transaction.
func (s *SQLiteStore) StartTransaction(ctx context.Context) (persistence.Store, error) {
	if s.tx != nil {
		return nil, fmt.Errorf("cannot start a new transaction from an existing transactional store")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.logger.Debug("Transaction initiated, returning new transactional store")
	return NewSQLiteStore(s.db, s.logger, tx), nil
}

// Commit commits the current transaction.
func (s *SQLiteStore) Commit(ctx context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("commit not applicable: not in a transactional context")
	}
	s.logger.Debug("Committing transaction")
	return s.tx.Commit()
}

// Rollback rolls back the current transaction.
func (s *SQLiteStore) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("rollback not applicable: not in a transactional context")
	}
	s.logger.Debug("Rolling back transaction")
	return s.tx.Rollback()
}
