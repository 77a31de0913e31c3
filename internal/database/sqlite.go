package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"garage-go/internal/database/migrations"
	"garage-go/internal/garage"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// timeLayout is how timestamps are stored in TEXT columns.
const timeLayout = time.RFC3339Nano

// SQLiteDatabase implements garage.Database using SQLite.
type SQLiteDatabase struct {
	db    *sql.DB
	clock garage.Clock
	path  string
}

// NewSQLiteDatabase opens the database at path and applies pending
// migrations. path can be a file path or ":memory:".
func NewSQLiteDatabase(path string, clock garage.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return NewSQLiteDatabaseFromDB(db, clock, path), nil
}

// NewSQLiteDatabaseFromDB wraps an existing, already migrated connection.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock garage.Clock, path string) *SQLiteDatabase {
	if clock == nil {
		clock = garage.RealClock{}
	}
	return &SQLiteDatabase{db: db, clock: clock, path: path}
}

// OpenConnection opens and configures a SQLite database connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}
	return db, nil
}

// Draft operations

// PutDraftEntry inserts or replaces the entry for (BuildID, Key).
func (s *SQLiteDatabase) PutDraftEntry(entry *garage.DraftEntry) error {
	if !json.Valid(entry.Value) {
		return fmt.Errorf("draft entry %s: value is not valid JSON", entry.Key)
	}
	updated := entry.UpdatedAt
	if updated.IsZero() {
		updated = s.clock.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO draft_entries (build_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (build_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		entry.BuildID, entry.Key, string(entry.Value), updated.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("storing draft entry: %w", err)
	}
	return nil
}

// ListDraftEntries returns the build's pending entries ordered by key.
func (s *SQLiteDatabase) ListDraftEntries(buildID int64) ([]*garage.DraftEntry, error) {
	rows, err := s.db.Query(`
		SELECT key, value, updated_at FROM draft_entries
		WHERE build_id = ? ORDER BY key`, buildID)
	if err != nil {
		return nil, fmt.Errorf("listing draft entries: %w", err)
	}
	defer rows.Close()

	var entries []*garage.DraftEntry
	for rows.Next() {
		var key, value, updated string
		if err := rows.Scan(&key, &value, &updated); err != nil {
			return nil, fmt.Errorf("scanning draft entry: %w", err)
		}
		ts, err := time.Parse(timeLayout, updated)
		if err != nil {
			return nil, fmt.Errorf("draft entry %s: %w", key, err)
		}
		entries = append(entries, &garage.DraftEntry{
			BuildID:   buildID,
			Key:       key,
			Value:     json.RawMessage(value),
			UpdatedAt: ts,
		})
	}
	return entries, rows.Err()
}

// DeleteDraftEntries removes the named entries of a build in one transaction.
func (s *SQLiteDatabase) DeleteDraftEntries(buildID int64, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.Exec(`DELETE FROM draft_entries WHERE build_id = ? AND key = ?`, buildID, k); err != nil {
			return fmt.Errorf("deleting draft entry %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// ClearDraft removes every pending entry of a build.
func (s *SQLiteDatabase) ClearDraft(buildID int64) error {
	if _, err := s.db.Exec(`DELETE FROM draft_entries WHERE build_id = ?`, buildID); err != nil {
		return fmt.Errorf("clearing draft: %w", err)
	}
	return nil
}

// ListDraftBuilds returns the ids of builds with pending entries, ascending.
func (s *SQLiteDatabase) ListDraftBuilds() ([]int64, error) {
	rows, err := s.db.Query(`SELECT DISTINCT build_id FROM draft_entries ORDER BY build_id`)
	if err != nil {
		return nil, fmt.Errorf("listing draft builds: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning draft build: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Operation log

// CreateOperation records the start of a command.
func (s *SQLiteDatabase) CreateOperation(operation, parameters string) (*garage.Operation, error) {
	started := s.clock.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO operations (operation, parameters, status, started_at)
		VALUES (?, ?, 'running', ?)`,
		operation, parameters, started.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return &garage.Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  started,
	}, nil
}

// FinishOperation stores the final status of a command.
func (s *SQLiteDatabase) FinishOperation(id int64, status string) error {
	res, err := s.db.Exec(`UPDATE operations SET status = ?, finished_at = ? WHERE id = ?`,
		status, s.clock.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing operation %d: %w", id, garage.ErrNotFound)
	}
	return nil
}

// ListOperations returns the most recent operations, newest first.
func (s *SQLiteDatabase) ListOperations(limit int) ([]*garage.Operation, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.Query(`
		SELECT id, operation, parameters, status, started_at, finished_at
		FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*garage.Operation
	for rows.Next() {
		var (
			op       garage.Operation
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ts, err := time.Parse(timeLayout, started)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", op.ID, err)
		}
		op.StartedAt = ts
		if finished.Valid {
			t, err := time.Parse(timeLayout, finished.String)
			if err != nil {
				return nil, fmt.Errorf("operation %d: %w", op.ID, err)
			}
			op.FinishedAt = &t
		}
		ops = append(ops, &op)
	}
	return ops, rows.Err()
}

// Path returns the database file path, or ":memory:".
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// BackupTo writes a complete copy of the database to destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if strings.TrimSpace(destPath) == "" {
		return errors.New("backup destination is empty")
	}
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ garage.Database = (*SQLiteDatabase)(nil)
