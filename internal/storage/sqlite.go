// Package storage persists projects, papers, similarity records and
// bibliography entries in SQLite, and serves live subscriptions over them.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db     *sql.DB
	hub    *hub
	now    func() time.Time
	logger zerolog.Logger

	// poll re-runs live queries to pick up writes made by other processes.
	poll time.Duration
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{
		db:     db,
		hub:    newHub(),
		now:    func() time.Time { return time.Now().UTC() },
		logger: zerolog.Nop(),
	}, nil
}

// SetLogger sets the logger used for subscription errors.
func (d *DB) SetLogger(l zerolog.Logger) {
	d.logger = l
}

// SetPollInterval makes live queries also reload every d, emitting only
// when the result changed. Writes through this DB are seen immediately
// regardless; polling is for writes from other processes. Zero disables it.
func (d *DB) SetPollInterval(interval time.Duration) {
	d.poll = interval
}

// SetClock replaces the time source. Useful for testing.
func (d *DB) SetClock(now func() time.Time) {
	d.now = now
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			pdf_count INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_projects_created ON projects(created_at);

		CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			title TEXT NOT NULL,
			author TEXT,
			abstract TEXT,
			refs_text TEXT,
			subject TEXT,
			venue TEXT,
			year INTEGER,
			file_ref TEXT,
			version INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_papers_project ON papers(project_id, created_at);

		-- Full-text search over paper metadata (standalone, not external content)
		CREATE VIRTUAL TABLE IF NOT EXISTS papers_fts USING fts5(
			id UNINDEXED,
			project_id UNINDEXED,
			title,
			author,
			abstract
		);

		-- Similarity records keep the upstream JSON verbatim
		CREATE TABLE IF NOT EXISTS similarities (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			generation INTEGER NOT NULL DEFAULT 0,
			data TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_similarities_project ON similarities(project_id, generation);

		-- Per-project recompute generations: next to allocate, latest visible
		CREATE TABLE IF NOT EXISTS similarity_generations (
			project_id TEXT PRIMARY KEY,
			next_gen INTEGER NOT NULL,
			published INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS bib_entries (
			project_id TEXT NOT NULL,
			cite_key TEXT NOT NULL,
			paper_id TEXT,
			entry TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (project_id, cite_key)
		);

		-- Papers added before projects had records get an implicit project
		INSERT OR IGNORE INTO projects (id, title, pdf_count, created_at, updated_at)
		SELECT project_id, project_id, COUNT(file_ref), MIN(created_at), MAX(updated_at)
		FROM papers GROUP BY project_id;
	`

	_, err := db.Exec(schema)
	return err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableInt converts an int to sql.NullInt64, treating zero as NULL.
func nullableInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// FTS5 uses double quotes for phrase matching
	if strings.ContainsAny(query, "\"*+-:(){}[]^~") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
