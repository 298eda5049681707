package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/papertrail/papertrail/internal/paper"
	"github.com/papertrail/papertrail/internal/similarity"
)

func TestReadWritePapers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.jsonl")
	in := []paper.Paper{
		{ID: "a", ProjectID: "p1", Title: "First", Author: "Smith, J.", Year: 2022},
		{ID: "b", ProjectID: "p1", Title: "Second", Abstract: "text"},
	}
	if err := WritePapers(path, in); err != nil {
		t.Fatal(err)
	}

	out, err := ReadPapers(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 papers, got %d", len(out))
	}
	if out[0].Title != "First" || out[0].Year != 2022 || out[1].Abstract != "text" {
		t.Errorf("papers not preserved: %+v", out)
	}
}

func TestReadPapers_MissingFile(t *testing.T) {
	got, err := ReadPapers(filepath.Join(t.TempDir(), "missing.jsonl"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %d", len(got))
	}
}

func TestReadPapers_SkipsBlankLinesAndReportsBadLine(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.jsonl")
	os.WriteFile(good, []byte("{\"id\":\"a\",\"title\":\"x\"}\n\n{\"id\":\"b\",\"title\":\"y\"}\n"), 0644)
	got, err := ReadPapers(good)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 papers, got %d", len(got))
	}

	bad := filepath.Join(dir, "bad.jsonl")
	os.WriteFile(bad, []byte("{\"id\":\"a\"}\nnot json\n"), 0644)
	if _, err := ReadPapers(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestReadWriteRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sims.jsonl")
	in := []similarity.Record{pair("a", "b", 0.75)}
	if err := WriteRecords(path, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadRecords(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	score, ok := out[0].Score(similarity.MetricOverall)
	if !ok || score != 0.75 {
		t.Errorf("Score = %v, %v; want 0.75, true", score, ok)
	}
}

func TestDB_ImportPapers(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	id, _ := db.AddPaper(ctx, paper.Paper{ProjectID: "p1", Title: "draft.pdf"})

	added, updated, err := db.ImportPapers(ctx, "p1", []paper.Paper{
		{ID: id, Title: "Resolved Title", Author: "Doe, A."},
		{Title: "Brand New"},
	})
	if err != nil {
		t.Fatalf("ImportPapers failed: %v", err)
	}
	if added != 1 || updated != 1 {
		t.Errorf("added=%d updated=%d, want 1 and 1", added, updated)
	}

	got, _ := db.GetPaper(ctx, "p1", id)
	if got.Title != "Resolved Title" || got.Version != 2 {
		t.Errorf("existing paper not updated: %+v", got)
	}
	count, _ := db.CountPapers(ctx, "p1")
	if count != 2 {
		t.Errorf("CountPapers = %d, want 2", count)
	}
}
