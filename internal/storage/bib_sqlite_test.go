package storage

import (
	"errors"
	"testing"
)

func TestDB_UpsertBibEntry_OneEntryPerKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	e := BibEntry{ProjectID: "p1", Key: "smith2022", PaperID: "a", Entry: "@article{smith2022,\n}\n"}
	for range 2 {
		if err := db.UpsertBibEntry(ctx, e); err != nil {
			t.Fatalf("UpsertBibEntry failed: %v", err)
		}
	}

	entries, err := db.ListBibEntries(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(entries))
	}
	if entries[0].Entry != e.Entry {
		t.Errorf("Entry = %q, want %q", entries[0].Entry, e.Entry)
	}
}

func TestDB_UpsertBibEntry_OverwriteKeepsCreatedAt(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	db.UpsertBibEntry(ctx, BibEntry{ProjectID: "p1", Key: "k", Entry: "old"})
	first, _ := db.GetBibEntry(ctx, "p1", "k")

	db.UpsertBibEntry(ctx, BibEntry{ProjectID: "p1", Key: "k", PaperID: "b", Entry: "new"})
	second, err := db.GetBibEntry(ctx, "p1", "k")
	if err != nil {
		t.Fatal(err)
	}

	if second.Entry != "new" || second.PaperID != "b" {
		t.Errorf("entry not overwritten: %+v", second)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("UpdatedAt should advance")
	}
}

func TestDB_UpsertBibEntry_Validation(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	if err := db.UpsertBibEntry(ctx, BibEntry{ProjectID: "p1", Entry: "x"}); !errors.Is(err, ErrEmptyCiteKey) {
		t.Errorf("expected ErrEmptyCiteKey, got %v", err)
	}
	if err := db.UpsertBibEntry(ctx, BibEntry{ProjectID: "p1", Key: "k"}); !errors.Is(err, ErrEmptyEntry) {
		t.Errorf("expected ErrEmptyEntry, got %v", err)
	}
	if err := db.UpsertBibEntry(ctx, BibEntry{Key: "k", Entry: "x"}); err == nil {
		t.Error("expected error for missing project")
	}
}

func TestDB_GetBibEntry_Missing(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	got, err := db.GetBibEntry(ctx, "p1", "nope")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestDB_WatchBibEntries(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	ch := db.WatchBibEntries(ctx, "p1")
	receiveWithin(t, ch)

	db.UpsertBibEntry(ctx, BibEntry{ProjectID: "p1", Key: "doe2020", Entry: "@misc{doe2020,\n}\n"})
	got := receiveWithin(t, ch)
	if len(got) != 1 || got[0].Key != "doe2020" {
		t.Errorf("unexpected snapshot %+v", got)
	}
}
