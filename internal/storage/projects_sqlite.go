package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/papertrail/papertrail/internal/project"
)

const projectsTopic = "projects"

const selectProjectFields = `id, title, description, pdf_count, created_at, updated_at`

// UpsertProject stores a project. An existing project with the same ID,
// including one created implicitly by AddPaper, keeps its creation time
// and PDF count and takes the new title and description.
func (d *DB) UpsertProject(ctx context.Context, p project.Project) error {
	if err := p.ValidateForCreate(); err != nil {
		return err
	}

	now := toUnix(d.now())
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO projects (id, title, description, pdf_count, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		p.ID, p.Title, nullableStringValue(p.Description), now, now)
	if err != nil {
		return fmt.Errorf("upserting project %s: %w", p.ID, err)
	}

	d.hub.publish(projectsTopic)
	return nil
}

// touchProject records a paper being added to projectID inside tx. A
// project without a record gets one titled by its ID. Papers with an
// attached file bump the PDF count.
func touchProject(ctx context.Context, tx *sql.Tx, projectID string, hasFile bool, now time.Time) error {
	pdfs := 0
	if hasFile {
		pdfs = 1
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projects (id, title, pdf_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pdf_count = pdf_count + excluded.pdf_count,
			updated_at = excluded.updated_at`,
		projectID, projectID, pdfs, toUnix(now), toUnix(now))
	if err != nil {
		return fmt.Errorf("recording paper in project %s: %w", projectID, err)
	}
	return nil
}

// GetProject retrieves a project by ID. Returns nil if it does not exist.
func (d *DB) GetProject(ctx context.Context, id string) (*project.Project, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectProjectFields+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// ListProjects returns every project, newest first.
func (d *DB) ListProjects(ctx context.Context) ([]project.Project, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+selectProjectFields+`
		FROM projects
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// ProjectIDs returns the ID of every project in ID order.
func (d *DB) ProjectIDs(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing project ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// WatchProjects is a live query over all projects, newest first.
func (d *DB) WatchProjects(ctx context.Context) <-chan []project.Project {
	return watch(ctx, d, projectsTopic, d.ListProjects)
}

func scanProject(s scanner) (*project.Project, error) {
	var p project.Project
	var description sql.NullString
	var createdAt, updatedAt int64
	err := s.Scan(&p.ID, &p.Title, &description, &p.PDFCount, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.Description = description.String
	p.CreatedAt = fromUnix(createdAt)
	p.UpdatedAt = fromUnix(updatedAt)
	return &p, nil
}
