// Package stats records slot access counts and search history in a small
// SQLite database. Recording is best-effort: callers log failures and move
// on, a stats problem never fails a memory operation.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Recorder writes and reads the stats database.
type Recorder struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the stats database at the given path and
// initializes the schema.
func Open(dbPath string) (*Recorder, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open stats db: %w", err)
	}

	r := &Recorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate stats db: %w", err)
	}

	slog.Info("stats db opened", "path", dbPath)
	return r, nil
}

func (r *Recorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS slot_access (
			slot TEXT NOT NULL,
			action TEXT NOT NULL,
			at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_slot_access_slot ON slot_access(slot)`,
		`CREATE TABLE IF NOT EXISTS search_history (
			query TEXT NOT NULL,
			results INTEGER NOT NULL DEFAULT 0,
			at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}

// RecordAccess logs one slot operation.
func (r *Recorder) RecordAccess(ctx context.Context, slot, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO slot_access (slot, action) VALUES (?, ?)", slot, action)
	return err
}

// RecordSearch logs one search and its result count.
func (r *Recorder) RecordSearch(ctx context.Context, query string, results int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO search_history (query, results) VALUES (?, ?)", query, results)
	return err
}

// SlotAccess summarizes access activity for one slot.
type SlotAccess struct {
	Slot       string    `json:"slot"`
	Accesses   int       `json:"accesses"`
	LastAccess time.Time `json:"last_access"`
}

// TopSlots returns the most-accessed slots, highest first.
func (r *Recorder) TopSlots(ctx context.Context, limit int) ([]SlotAccess, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT slot, COUNT(*) AS n, MAX(at) FROM slot_access
		 GROUP BY slot ORDER BY n DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SlotAccess
	for rows.Next() {
		var sa SlotAccess
		var last int64
		if err := rows.Scan(&sa.Slot, &sa.Accesses, &last); err != nil {
			continue
		}
		sa.LastAccess = time.Unix(last, 0).UTC()
		out = append(out, sa)
	}
	return out, rows.Err()
}

// SearchRecord is one logged search.
type SearchRecord struct {
	Query   string    `json:"query"`
	Results int       `json:"results"`
	At      time.Time `json:"at"`
}

// RecentSearches returns the latest searches, newest first.
func (r *Recorder) RecentSearches(ctx context.Context, limit int) ([]SearchRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT query, results, at FROM search_history ORDER BY at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchRecord
	for rows.Next() {
		var sr SearchRecord
		var at int64
		if err := rows.Scan(&sr.Query, &sr.Results, &at); err != nil {
			continue
		}
		sr.At = time.Unix(at, 0).UTC()
		out = append(out, sr)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}
