package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/swapdesk/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is a fresh database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// === Local state ===

// GetValue returns the value stored under key, or ErrNotFound.
func (s *SQLiteStore) GetValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM local_state WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading local state %q: %w", key, err)
	}
	return value, nil
}

// SetValue stores value under key, replacing any previous value.
func (s *SQLiteStore) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing local state %q: %w", key, err)
	}
	return nil
}

// DeleteValue removes key. Removing a missing key is not an error.
func (s *SQLiteStore) DeleteValue(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM local_state WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting local state %q: %w", key, err)
	}
	return nil
}

// TakeValue reads and deletes key in a single transaction.
func (s *SQLiteStore) TakeValue(ctx context.Context, key string) (string, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var value string
	err = tx.GetContext(ctx, &value, "SELECT value FROM local_state WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading local state %q: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM local_state WHERE key = ?", key); err != nil {
		return "", false, fmt.Errorf("deleting local state %q: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("committing take of %q: %w", key, err)
	}
	return value, true, nil
}

// === Funding attempts ===

// RecordAttempt inserts or replaces a funding attempt.
func (s *SQLiteStore) RecordAttempt(ctx context.Context, a model.FundingAttempt) error {
	if a.Reference == "" {
		return fmt.Errorf("recording funding attempt: empty reference")
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	if a.Status == "" {
		a.Status = model.FundingPending
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO funding_attempts (
			reference, user_id, kind, order_id, amount,
			authorization_url, status, message,
			created_at, updated_at
		) VALUES (
			:reference, :user_id, :kind, :order_id, :amount,
			:authorization_url, :status, :message,
			:created_at, :updated_at
		)`,
		attemptRow(a),
	)
	if err != nil {
		return fmt.Errorf("recording funding attempt %s: %w", a.Reference, err)
	}
	return nil
}

// UpdateAttemptStatus sets the outcome of an attempt.
func (s *SQLiteStore) UpdateAttemptStatus(
	ctx context.Context,
	reference, status, message string,
) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE funding_attempts SET status = ?, message = ?, updated_at = ?
		WHERE reference = ?`,
		status, message, time.Now().UTC(), reference,
	)
	if err != nil {
		return fmt.Errorf("updating funding attempt %s: %w", reference, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating funding attempt %s: %w", reference, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAttempt retrieves a single attempt by reference.
func (s *SQLiteStore) GetAttempt(
	ctx context.Context,
	reference string,
) (*model.FundingAttempt, error) {
	var a model.FundingAttempt
	err := s.db.GetContext(ctx, &a, "SELECT * FROM funding_attempts WHERE reference = ?", reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting funding attempt %s: %w", reference, err)
	}
	return &a, nil
}

// ListAttempts returns attempts matching filter, newest first.
func (s *SQLiteStore) ListAttempts(
	ctx context.Context,
	filter AttemptFilter,
) ([]model.FundingAttempt, error) {
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Kind != nil {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(*filter.Kind))
	}

	query := "SELECT * FROM funding_attempts"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var attempts []model.FundingAttempt
	if err := s.db.SelectContext(ctx, &attempts, query, args...); err != nil {
		return nil, fmt.Errorf("querying funding attempts: %w", err)
	}
	return attempts, nil
}

// attemptRow normalizes times to UTC before binding.
func attemptRow(a model.FundingAttempt) model.FundingAttempt {
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a
}
