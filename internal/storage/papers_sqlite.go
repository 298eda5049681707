package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/papertrail/papertrail/internal/paper"
)

// ErrPaperNotFound is returned when a paper ID does not exist in the project.
var ErrPaperNotFound = errors.New("paper not found")

// selectPaperFields contains the standard field list for paper SELECT queries.
const selectPaperFields = `id, project_id, title, author, abstract, refs_text,
	subject, venue, year, file_ref, version, created_at, updated_at`

// AddPaper validates and inserts a paper, returning its identifier.
// A new identifier is generated unless p.ID is already set. The owning
// project is created if it has no record yet.
func (d *DB) AddPaper(ctx context.Context, p paper.Paper) (string, error) {
	if err := p.ValidateForCreate(); err != nil {
		return "", err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := d.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Version == 0 {
		p.Version = 1
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertPaper(ctx, tx, p); err != nil {
		return "", err
	}
	if err := touchProject(ctx, tx, p.ProjectID, p.FileRef != "", now); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing paper %s: %w", p.ID, err)
	}

	d.hub.publish(papersTopic(p.ProjectID))
	d.hub.publish(projectsTopic)
	return p.ID, nil
}

func insertPaper(ctx context.Context, tx *sql.Tx, p paper.Paper) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO papers (
			id, project_id, title, author, abstract, refs_text,
			subject, venue, year, file_ref, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ProjectID, p.Title,
		nullableStringValue(p.Author), nullableStringValue(p.Abstract), nullableStringValue(p.References),
		nullableStringValue(p.Subject), nullableStringValue(p.Venue), nullableInt(p.Year),
		nullableStringValue(p.FileRef), p.Version, toUnix(p.CreatedAt), toUnix(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting paper %s: %w", p.ID, err)
	}
	return writeFTS(ctx, tx, p)
}

func writeFTS(ctx context.Context, tx *sql.Tx, p paper.Paper) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM papers_fts WHERE id = ?`, p.ID); err != nil {
		return fmt.Errorf("clearing fts for %s: %w", p.ID, err)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO papers_fts (id, project_id, title, author, abstract)
		VALUES (?, ?, ?, ?, ?)`, p.ID, p.ProjectID, p.Title, p.Author, p.Abstract)
	if err != nil {
		return fmt.Errorf("inserting fts for %s: %w", p.ID, err)
	}
	return nil
}

// UpdatePaper overwrites the fields set in u, typically once ingestion
// resolves higher-fidelity metadata. The paper's version is bumped.
func (d *DB) UpdatePaper(ctx context.Context, projectID, id string, u paper.Update) (*paper.Paper, error) {
	if id == "" {
		return nil, paper.ErrEmptyID
	}
	if u.IsEmpty() {
		return nil, paper.ErrNoChanges
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+selectPaperFields+` FROM papers WHERE project_id = ? AND id = ?`, projectID, id)
	p, err := scanPaper(row)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPaperNotFound, id)
	}

	p.Apply(u, d.now())
	if err := p.ValidateForCreate(); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE papers SET title = ?, author = ?, abstract = ?, refs_text = ?,
			venue = ?, year = ?, version = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, nullableStringValue(p.Author), nullableStringValue(p.Abstract),
		nullableStringValue(p.References), nullableStringValue(p.Venue), nullableInt(p.Year),
		p.Version, toUnix(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating paper %s: %w", id, err)
	}
	if err := writeFTS(ctx, tx, *p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing paper %s: %w", id, err)
	}

	d.hub.publish(papersTopic(projectID))
	return p, nil
}

// GetPaper retrieves a paper by ID. Returns nil if it does not exist.
func (d *DB) GetPaper(ctx context.Context, projectID, id string) (*paper.Paper, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectPaperFields+` FROM papers WHERE project_id = ? AND id = ?`, projectID, id)
	return scanPaper(row)
}

// ListPapers returns all papers of a project, newest first.
func (d *DB) ListPapers(ctx context.Context, projectID string) ([]paper.Paper, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+selectPaperFields+`
		FROM papers
		WHERE project_id = ?
		ORDER BY created_at DESC, rowid DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	return scanPapers(rows)
}

// SearchPapers performs a full-text search over title, author and abstract.
func (d *DB) SearchPapers(ctx context.Context, projectID, query string, limit int) ([]paper.Paper, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+selectPaperFields+`
		FROM papers
		WHERE project_id = ?
		  AND id IN (SELECT id FROM papers_fts WHERE papers_fts MATCH ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, projectID, prepareFTSQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("searching papers: %w", err)
	}
	defer rows.Close()

	return scanPapers(rows)
}

// CountPapers returns the number of papers in a project.
func (d *DB) CountPapers(ctx context.Context, projectID string) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers WHERE project_id = ?`, projectID).Scan(&count)
	return count, err
}

// WatchPapers is a live query over a project's papers. It yields the full
// list, newest first, immediately and after every add or update.
func (d *DB) WatchPapers(ctx context.Context, projectID string) <-chan []paper.Paper {
	return watch(ctx, d, papersTopic(projectID), func(ctx context.Context) ([]paper.Paper, error) {
		return d.ListPapers(ctx, projectID)
	})
}

func scanPaper(s scanner) (*paper.Paper, error) {
	var p paper.Paper
	var author, abstract, refs, subject, venue, fileRef sql.NullString
	var year sql.NullInt64
	var createdAt, updatedAt int64

	err := s.Scan(
		&p.ID, &p.ProjectID, &p.Title, &author, &abstract, &refs,
		&subject, &venue, &year, &fileRef, &p.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	p.Author = author.String
	p.Abstract = abstract.String
	p.References = refs.String
	p.Subject = subject.String
	p.Venue = venue.String
	p.FileRef = fileRef.String
	if year.Valid {
		p.Year = int(year.Int64)
	}
	p.CreatedAt = fromUnix(createdAt)
	p.UpdatedAt = fromUnix(updatedAt)

	return &p, nil
}

func scanPapers(rows *sql.Rows) ([]paper.Paper, error) {
	var papers []paper.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		if p != nil {
			papers = append(papers, *p)
		}
	}
	return papers, rows.Err()
}
