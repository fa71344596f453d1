package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ble-finder.klederson.com/internal/bluetooth"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists history in a single SQLite file.
type SQLiteStore struct {
	db    *sql.DB
	limit int
	log   zerolog.Logger
}

// OpenSQLite opens (creating if needed) the database at path. limit bounds
// the number of kept entries.
func OpenSQLite(ctx context.Context, path string, limit int, logger zerolog.Logger) (*SQLiteStore, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("history limit must be positive, got %d", limit)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	s := &SQLiteStore{
		db:    db,
		limit: limit,
		log:   logger.With().Str("component", "history").Logger(),
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	statements := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS history (
			handle TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			class TEXT NOT NULL,
			found_at TEXT NOT NULL,
			saved_seq INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_saved_seq ON history(saved_seq);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}
	return nil
}

// Save inserts or replaces e at the front of the list and trims the tail.
func (s *SQLiteStore) Save(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(saved_seq), 0) + 1 FROM history`).Scan(&next); err != nil {
		return fmt.Errorf("next history seq: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history (handle, name, class, found_at, saved_seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET
			name=excluded.name,
			class=excluded.class,
			found_at=excluded.found_at,
			saved_seq=excluded.saved_seq`,
		string(e.Handle), e.Name, e.Class.String(), e.FoundAt.UTC().Format(time.RFC3339Nano), next,
	); err != nil {
		return fmt.Errorf("save history entry: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM history WHERE handle NOT IN (
			SELECT handle FROM history ORDER BY saved_seq DESC LIMIT ?
		)`, s.limit)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if rows, _ := res.RowsAffected(); rows > 0 {
		s.log.Debug().Int64("rows", rows).Msg("trimmed history")
	}
	s.log.Info().Str("handle", string(e.Handle)).Str("name", e.Name).Msg("saved to history")
	return nil
}

// List returns entries most recent first.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT handle, name, class, found_at
		FROM history
		ORDER BY saved_seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e             Entry
			handle, class string
			foundAt       string
		)
		if err := rows.Scan(&handle, &e.Name, &class, &foundAt); err != nil {
			return nil, err
		}
		e.Handle = bluetooth.Handle(handle)
		e.Class = bluetooth.ParseDeviceClass(class)
		if ts, err := time.Parse(time.RFC3339Nano, foundAt); err == nil {
			e.FoundAt = ts.UTC()
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Remove deletes the entry for h. Removing an absent handle is not an error.
func (s *SQLiteStore) Remove(ctx context.Context, h bluetooth.Handle) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE handle = ?`, string(h)); err != nil {
		return fmt.Errorf("remove history entry: %w", err)
	}
	return nil
}

// Clear deletes every entry.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	s.log.Info().Msg("history cleared")
	return nil
}
