// Package settings stores operator tunables in a small SQLite
// database.
//
// The store is a plain key-value table opened in WAL mode with prepared
// statements. Tunables are read on demand by their consumers rather
// than cached, so a value written by the CLI takes effect on the next
// read; unreadable or out-of-range values fall back to their defaults
// instead of failing the reader.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/frobware/go-fastpath/generic"
)

const keyDelayDetachTimeout = "generic.delay_detach_timeout_sec"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store is a SQLite-backed settings store. It implements
// generic.TimeoutSource.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	stmtGet *sql.Stmt
	stmtSet *sql.Stmt
}

// Open creates or opens the settings database at dbPath, creating
// parent directories as needed.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "settings", "db", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create settings directory: %w", err)
	}

	db, err := sql.Open(driverName, dsn(dbPath, [][2]string{
		{"journal_mode", "WAL"},
		{"busy_timeout", "5000"},
	}))
	if err != nil {
		return nil, fmt.Errorf("open settings database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate settings database: %w", err)
	}
	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare settings statements: %w", err)
	}

	logger.Debug("opened settings database")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

func (s *Store) prepareStatements(ctx context.Context) error {
	var err error

	const sqlGet = "SELECT value FROM settings WHERE key = ?"
	if s.stmtGet, err = s.db.PrepareContext(ctx, sqlGet); err != nil {
		return fmt.Errorf("prepare get: %w", err)
	}

	const sqlSet = `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
		  value = excluded.value,
		  updated_at = excluded.updated_at`
	if s.stmtSet, err = s.db.PrepareContext(ctx, sqlSet); err != nil {
		return fmt.Errorf("prepare set: %w", err)
	}

	return nil
}

// Close releases the prepared statements and the database connection.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{s.stmtGet, s.stmtSet} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

// DelayDetachTimeout returns the configured grace period applied before
// an idle datapath direction is torn down. Missing, unreadable, or
// out-of-range values fall back to generic.DefaultDelayDetachTimeout.
func (s *Store) DelayDetachTimeout() time.Duration {
	raw, ok := s.get(keyDelayDetachTimeout)
	if !ok {
		return generic.DefaultDelayDetachTimeout
	}

	sec, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		s.logger.Warn("invalid delay-detach timeout, using default",
			"value", raw, "default", generic.DefaultDelayDetachTimeout)
		return generic.DefaultDelayDetachTimeout
	}
	return time.Duration(sec) * time.Second
}

// SetDelayDetachTimeout stores the grace period, truncated to whole
// seconds. The value must fit an unsigned 32-bit second count.
func (s *Store) SetDelayDetachTimeout(d time.Duration) error {
	sec := int64(d / time.Second)
	if sec < 0 || sec > math.MaxUint32 {
		return fmt.Errorf("delay-detach timeout %v out of range", d)
	}
	return s.set(keyDelayDetachTimeout, strconv.FormatInt(sec, 10))
}

func (s *Store) get(key string) (string, bool) {
	var value string
	err := s.stmtGet.QueryRow(key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		s.logger.Warn("read setting", "key", key, "error", err)
		return "", false
	}
	return value, true
}

func (s *Store) set(key, value string) error {
	if _, err := s.stmtSet.Exec(key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	s.logger.Info("updated setting", "key", key, "value", value)
	return nil
}
