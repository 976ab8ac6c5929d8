// Package journal keeps a local SQLite record of every override change,
// hotkey registration and lock the controller performs, plus the warnings
// logged along the way. It is the source for "winlock history".
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultLimit is the number of rows Recent returns when limit <= 0.
const DefaultLimit = 20

// Entry is one journal row.
type Entry struct {
	ID     int64
	RunID  string
	Time   time.Time
	Action string
	Detail string
	Error  string
}

// Failed reports whether the recorded action failed.
func (e Entry) Failed() bool { return e.Error != "" }

// Store is the journal database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; the resident run and one-shot commands share the file.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Debug("[journal] opened", "path", path)
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends e. A zero Time is replaced with the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.Action) == "" {
		return errors.New("journal entry requires an action")
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (run_id, created_at, action, detail, error) VALUES (?, ?, ?, ?, ?)`,
		e.RunID,
		e.Time.UTC().Format(time.RFC3339Nano),
		e.Action,
		nullableString(e.Detail),
		nullableString(e.Error),
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, created_at, action, detail, error FROM entries ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			createdAt string
			detail    sql.NullString
			errText   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RunID, &createdAt, &e.Action, &detail, &errText); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Time, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse journal timestamp %q: %w", createdAt, err)
		}
		e.Detail = detail.String
		e.Error = errText.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
