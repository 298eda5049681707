package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/papertrail/papertrail/internal/paper"
	"github.com/papertrail/papertrail/internal/similarity"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// readJSONL decodes one value per non-empty line.
// A missing file yields an empty slice.
func readJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		out = append(out, v)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return out, nil
}

// writeJSONL writes one value per line, replacing existing content.
func writeJSONL[T any](path string, values []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding line %d: %w", i+1, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing line %d: %w", i+1, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	return w.Flush()
}

// ReadPapers reads papers from a JSONL file.
func ReadPapers(path string) ([]paper.Paper, error) {
	return readJSONL[paper.Paper](path)
}

// WritePapers writes papers to a JSONL file.
func WritePapers(path string, papers []paper.Paper) error {
	return writeJSONL(path, papers)
}

// ReadRecords reads similarity records in any upstream shape from a JSONL file.
func ReadRecords(path string) ([]similarity.Record, error) {
	return readJSONL[similarity.Record](path)
}

// WriteRecords writes similarity records to a JSONL file.
func WriteRecords(path string, recs []similarity.Record) error {
	return writeJSONL(path, recs)
}

// ImportPapers adds papers into a project. Papers whose ID already exists
// in the project are updated in place instead.
func (d *DB) ImportPapers(ctx context.Context, projectID string, papers []paper.Paper) (added, updated int, err error) {
	for i, p := range papers {
		p.ProjectID = projectID

		if p.ID != "" {
			existing, err := d.GetPaper(ctx, projectID, p.ID)
			if err != nil {
				return added, updated, fmt.Errorf("paper %d: %w", i+1, err)
			}
			if existing != nil {
				u := paper.Update{
					Title:      &p.Title,
					Author:     &p.Author,
					Abstract:   &p.Abstract,
					References: &p.References,
					Venue:      &p.Venue,
					Year:       &p.Year,
				}
				if _, err := d.UpdatePaper(ctx, projectID, p.ID, u); err != nil {
					return added, updated, fmt.Errorf("paper %d: %w", i+1, err)
				}
				updated++
				continue
			}
		}

		p.Version = 0
		if _, err := d.AddPaper(ctx, p); err != nil {
			return added, updated, fmt.Errorf("paper %d: %w", i+1, err)
		}
		added++
	}
	return added, updated, nil
}
