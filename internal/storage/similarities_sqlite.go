package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/papertrail/papertrail/internal/similarity"
)

// ErrStaleGeneration is returned when a replacement loses to a newer
// generation that has already been published.
var ErrStaleGeneration = errors.New("similarity generation is stale")

// StoredSimilarity is a similarity record with its storage metadata.
type StoredSimilarity struct {
	ID         string            `json:"id"`
	ProjectID  string            `json:"project_id"`
	Generation int64             `json:"generation"`
	CreatedAt  time.Time         `json:"created_at"`
	Record     similarity.Record `json:"record"`
}

// NextGeneration allocates a new recompute generation for a project.
func (d *DB) NextGeneration(ctx context.Context, projectID string) (int64, error) {
	var gen int64
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO similarity_generations (project_id, next_gen, published)
		VALUES (?, 1, 0)
		ON CONFLICT(project_id) DO UPDATE SET next_gen = next_gen + 1
		RETURNING next_gen`, projectID).Scan(&gen)
	if err != nil {
		return 0, fmt.Errorf("allocating generation: %w", err)
	}
	return gen, nil
}

// PublishGeneration makes a generation visible to CurrentSimilarities.
// Publishing never moves the visible generation backwards.
func (d *DB) PublishGeneration(ctx context.Context, projectID string, generation int64) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO similarity_generations (project_id, next_gen, published)
		VALUES (?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET published = MAX(published, excluded.published)`,
		projectID, generation, generation)
	if err != nil {
		return fmt.Errorf("publishing generation %d: %w", generation, err)
	}
	d.hub.publish(similaritiesTopic(projectID))
	return nil
}

// PublishedGeneration returns the generation currently visible to readers.
func (d *DB) PublishedGeneration(ctx context.Context, projectID string) (int64, error) {
	var gen int64
	err := d.db.QueryRowContext(ctx, `SELECT published FROM similarity_generations WHERE project_id = ?`, projectID).Scan(&gen)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return gen, err
}

// ListSimilarities returns every stored record of a project, whatever its generation.
func (d *DB) ListSimilarities(ctx context.Context, projectID string) ([]StoredSimilarity, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, project_id, generation, data, created_at
		FROM similarities
		WHERE project_id = ?
		ORDER BY created_at, rowid`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing similarities: %w", err)
	}
	defer rows.Close()

	return scanSimilarities(rows)
}

// CurrentSimilarities returns the records of the latest published generation.
// Records written by an unfinished recompute are not visible.
func (d *DB) CurrentSimilarities(ctx context.Context, projectID string) ([]similarity.Record, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, project_id, generation, data, created_at
		FROM similarities
		WHERE project_id = ?
		  AND generation = COALESCE(
			(SELECT published FROM similarity_generations WHERE project_id = ?), 0)
		ORDER BY created_at, rowid`, projectID, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing current similarities: %w", err)
	}
	defer rows.Close()

	stored, err := scanSimilarities(rows)
	if err != nil {
		return nil, err
	}
	records := make([]similarity.Record, len(stored))
	for i, s := range stored {
		records[i] = s.Record
	}
	return records, nil
}

// DeleteSimilarity removes one stored record.
func (d *DB) DeleteSimilarity(ctx context.Context, projectID, id string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM similarities WHERE project_id = ? AND id = ?`, projectID, id)
	if err != nil {
		return fmt.Errorf("deleting similarity %s: %w", id, err)
	}
	return nil
}

// PutSimilarity writes one record stamped with project, generation and
// creation time. The record is not visible until its generation is published.
func (d *DB) PutSimilarity(ctx context.Context, projectID string, generation int64, rec similarity.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding similarity: %w", err)
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO similarities (id, project_id, generation, data, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), projectID, generation, string(data), toUnix(d.now()))
	if err != nil {
		return fmt.Errorf("writing similarity: %w", err)
	}
	return nil
}

// ReplaceSimilarities atomically replaces a project's record set with recs
// and publishes generation, returning how many stored records were
// removed. It fails with ErrStaleGeneration if a newer generation is
// already visible.
func (d *DB) ReplaceSimilarities(ctx context.Context, projectID string, generation int64, recs []similarity.Record) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var published int64
	err = tx.QueryRowContext(ctx, `SELECT published FROM similarity_generations WHERE project_id = ?`, projectID).Scan(&published)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("reading published generation: %w", err)
	}
	if generation <= published {
		return 0, fmt.Errorf("%w: %d <= %d", ErrStaleGeneration, generation, published)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM similarities WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, fmt.Errorf("clearing similarities: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared similarities: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO similarities (id, project_id, generation, data, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing similarity insert: %w", err)
	}
	defer stmt.Close()

	createdAt := toUnix(d.now())
	for i, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("encoding similarity %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), projectID, generation, string(data), createdAt); err != nil {
			return 0, fmt.Errorf("inserting similarity %d: %w", i, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO similarity_generations (project_id, next_gen, published)
		VALUES (?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET published = excluded.published`,
		projectID, generation, generation)
	if err != nil {
		return 0, fmt.Errorf("publishing generation %d: %w", generation, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing similarities: %w", err)
	}

	d.hub.publish(similaritiesTopic(projectID))
	return int(deleted), nil
}

// WatchSimilarities is a live query over a project's current similarity set.
func (d *DB) WatchSimilarities(ctx context.Context, projectID string) <-chan []similarity.Record {
	return watch(ctx, d, similaritiesTopic(projectID), func(ctx context.Context) ([]similarity.Record, error) {
		return d.CurrentSimilarities(ctx, projectID)
	})
}

func scanSimilarities(rows *sql.Rows) ([]StoredSimilarity, error) {
	var out []StoredSimilarity
	for rows.Next() {
		var s StoredSimilarity
		var data string
		var createdAt int64
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Generation, &data, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &s.Record); err != nil {
			return nil, fmt.Errorf("parsing similarity %s: %w", s.ID, err)
		}
		s.CreatedAt = fromUnix(createdAt)
		out = append(out, s)
	}
	return out, rows.Err()
}
