package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore keeps schedule sets in a single SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (and migrates) the database at dsn, creating its
// directory if needed.
func NewSQLiteStore(dsn string, opts ...Option) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN not set")
	}
	o := applyOptions(opts)

	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping failed: %w", err)
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	o.logger.Debug().Str("dsn", dsn).Msg("sqlite store ready")

	return &SQLiteStore{db: db, logger: o.logger}, nil
}

// Load reads the set for key.
func (s *SQLiteStore) Load(ctx context.Context, key string) (*ScheduleSet, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM schedule_sets WHERE location = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAbsent
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("sqlite load failed")
		return nil, ErrAbsent
	}

	set, err := decodeSet([]byte(payload))
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("ignoring corrupt sqlite row")
		return nil, ErrAbsent
	}
	return set, nil
}

// Save upserts the set for key in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, key string, set *ScheduleSet) error {
	if err := validateKey(key); err != nil {
		return err
	}
	data, err := encodeSet(set)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO schedule_sets (location, payload, refreshed_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(location) DO UPDATE SET
			payload = excluded.payload,
			refreshed_at = excluded.refreshed_at,
			updated_at = excluded.updated_at`,
		key, string(data), set.RefreshedAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save schedule set for %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schedule set for %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
