package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Validation errors for bibliography entries.
var (
	ErrEmptyCiteKey = errors.New("citation key is required")
	ErrEmptyEntry   = errors.New("bibliography entry is empty")
)

// BibEntry is a persisted bibliography record, keyed by citation key
// within a project.
type BibEntry struct {
	ProjectID string    `json:"project_id"`
	Key       string    `json:"key"`
	PaperID   string    `json:"paper_id,omitempty"`
	Entry     string    `json:"entry"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertBibEntry stores an entry under its citation key. Storing the same
// key again overwrites the entry and keeps the original creation time.
func (d *DB) UpsertBibEntry(ctx context.Context, e BibEntry) error {
	if e.ProjectID == "" {
		return errors.New("project_id is required")
	}
	if e.Key == "" {
		return ErrEmptyCiteKey
	}
	if e.Entry == "" {
		return ErrEmptyEntry
	}

	now := toUnix(d.now())
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO bib_entries (project_id, cite_key, paper_id, entry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, cite_key) DO UPDATE SET
			paper_id = excluded.paper_id,
			entry = excluded.entry,
			updated_at = excluded.updated_at`,
		e.ProjectID, e.Key, nullableStringValue(e.PaperID), e.Entry, now, now)
	if err != nil {
		return fmt.Errorf("upserting bib entry %s: %w", e.Key, err)
	}

	d.hub.publish(bibTopic(e.ProjectID))
	return nil
}

// GetBibEntry returns the entry stored under key, or nil.
func (d *DB) GetBibEntry(ctx context.Context, projectID, key string) (*BibEntry, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT project_id, cite_key, paper_id, entry, created_at, updated_at
		FROM bib_entries WHERE project_id = ? AND cite_key = ?`, projectID, key)
	return scanBibEntry(row)
}

// ListBibEntries returns a project's entries, newest first.
func (d *DB) ListBibEntries(ctx context.Context, projectID string) ([]BibEntry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT project_id, cite_key, paper_id, entry, created_at, updated_at
		FROM bib_entries
		WHERE project_id = ?
		ORDER BY created_at DESC, rowid DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing bib entries: %w", err)
	}
	defer rows.Close()

	var entries []BibEntry
	for rows.Next() {
		e, err := scanBibEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// WatchBibEntries is a live query over a project's bibliography.
func (d *DB) WatchBibEntries(ctx context.Context, projectID string) <-chan []BibEntry {
	return watch(ctx, d, bibTopic(projectID), func(ctx context.Context) ([]BibEntry, error) {
		return d.ListBibEntries(ctx, projectID)
	})
}

func scanBibEntry(s scanner) (*BibEntry, error) {
	var e BibEntry
	var paperID sql.NullString
	var createdAt, updatedAt int64
	if err := s.Scan(&e.ProjectID, &e.Key, &paperID, &e.Entry, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	e.PaperID = paperID.String
	e.CreatedAt = fromUnix(createdAt)
	e.UpdatedAt = fromUnix(updatedAt)
	return &e, nil
}
