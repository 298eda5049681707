package storage

import (
	"errors"
	"testing"

	"github.com/papertrail/papertrail/internal/similarity"
)

func pair(a, b string, overall float64) similarity.Record {
	return similarity.Record{"paper1_id": a, "paper2_id": b, "overall_score": overall}
}

func TestDB_ReplaceSimilarities_ReplacesNotAppends(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	gen1, _ := db.NextGeneration(ctx, "p1")
	first := []similarity.Record{pair("a", "b", 0.9), pair("a", "c", 0.5), pair("b", "c", 0.1)}
	if _, err := db.ReplaceSimilarities(ctx, "p1", gen1, first); err != nil {
		t.Fatalf("first replace failed: %v", err)
	}

	gen2, _ := db.NextGeneration(ctx, "p1")
	second := []similarity.Record{pair("a", "b", 0.7), pair("a", "d", 0.6)}
	deleted, err := db.ReplaceSimilarities(ctx, "p1", gen2, second)
	if err != nil {
		t.Fatalf("second replace failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("second replace removed %d records, want 3", deleted)
	}

	current, err := db.CurrentSimilarities(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(current) != 2 {
		t.Fatalf("expected exactly 2 records after replace, got %d", len(current))
	}
	all, _ := db.ListSimilarities(ctx, "p1")
	if len(all) != 2 {
		t.Errorf("old records should be deleted, got %d stored", len(all))
	}
	for _, s := range all {
		if s.Generation != gen2 {
			t.Errorf("record generation = %d, want %d", s.Generation, gen2)
		}
		if s.ProjectID != "p1" || s.CreatedAt.IsZero() {
			t.Errorf("record not stamped: %+v", s)
		}
	}
}

func TestDB_ReplaceSimilarities_EmptySetClears(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	gen1, _ := db.NextGeneration(ctx, "p1")
	db.ReplaceSimilarities(ctx, "p1", gen1, []similarity.Record{pair("a", "b", 0.9)})

	gen2, _ := db.NextGeneration(ctx, "p1")
	deleted, err := db.ReplaceSimilarities(ctx, "p1", gen2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("clearing removed %d records, want 1", deleted)
	}
	current, _ := db.CurrentSimilarities(ctx, "p1")
	if len(current) != 0 {
		t.Errorf("expected empty set, got %d", len(current))
	}
}

func TestDB_ReplaceSimilarities_StaleGeneration(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	older, _ := db.NextGeneration(ctx, "p1")
	newer, _ := db.NextGeneration(ctx, "p1")

	if _, err := db.ReplaceSimilarities(ctx, "p1", newer, []similarity.Record{pair("a", "b", 0.8)}); err != nil {
		t.Fatal(err)
	}
	_, err := db.ReplaceSimilarities(ctx, "p1", older, []similarity.Record{pair("x", "y", 0.1)})
	if !errors.Is(err, ErrStaleGeneration) {
		t.Fatalf("expected ErrStaleGeneration, got %v", err)
	}

	current, _ := db.CurrentSimilarities(ctx, "p1")
	if len(current) != 1 {
		t.Fatalf("stale replace must not change stored set, got %d", len(current))
	}
	src, _, _ := current[0].Endpoints()
	if src != "a" {
		t.Errorf("unexpected surviving record %v", current[0])
	}
}

func TestDB_PutSimilarity_HiddenUntilPublished(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	gen, err := db.NextGeneration(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if gen != 1 {
		t.Errorf("first generation = %d, want 1", gen)
	}

	if err := db.PutSimilarity(ctx, "p1", gen, pair("a", "b", 0.9)); err != nil {
		t.Fatal(err)
	}
	current, _ := db.CurrentSimilarities(ctx, "p1")
	if len(current) != 0 {
		t.Errorf("unpublished records should be hidden, got %d", len(current))
	}

	if err := db.PublishGeneration(ctx, "p1", gen); err != nil {
		t.Fatal(err)
	}
	current, _ = db.CurrentSimilarities(ctx, "p1")
	if len(current) != 1 {
		t.Errorf("expected 1 record after publish, got %d", len(current))
	}
}

func TestDB_PublishGeneration_NeverMovesBackwards(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	db.NextGeneration(ctx, "p1")
	db.NextGeneration(ctx, "p1")
	db.PublishGeneration(ctx, "p1", 2)
	db.PublishGeneration(ctx, "p1", 1)

	got, err := db.PublishedGeneration(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("PublishedGeneration = %d, want 2", got)
	}

	next, _ := db.NextGeneration(ctx, "p1")
	if next != 3 {
		t.Errorf("NextGeneration after publish = %d, want 3", next)
	}
}

func TestDB_DeleteSimilarity(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	db.PutSimilarity(ctx, "p1", 0, pair("a", "b", 0.9))
	db.PutSimilarity(ctx, "p1", 0, pair("a", "c", 0.9))

	all, _ := db.ListSimilarities(ctx, "p1")
	if len(all) != 2 {
		t.Fatalf("expected 2 stored, got %d", len(all))
	}
	if err := db.DeleteSimilarity(ctx, "p1", all[0].ID); err != nil {
		t.Fatal(err)
	}
	all, _ = db.ListSimilarities(ctx, "p1")
	if len(all) != 1 {
		t.Errorf("expected 1 after delete, got %d", len(all))
	}
}

func TestDB_Similarities_ProjectIsolation(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	g1, _ := db.NextGeneration(ctx, "p1")
	db.ReplaceSimilarities(ctx, "p1", g1, []similarity.Record{pair("a", "b", 0.9)})
	g2, _ := db.NextGeneration(ctx, "p2")
	db.ReplaceSimilarities(ctx, "p2", g2, []similarity.Record{pair("x", "y", 0.9), pair("x", "z", 0.9)})

	p1, _ := db.CurrentSimilarities(ctx, "p1")
	p2, _ := db.CurrentSimilarities(ctx, "p2")
	if len(p1) != 1 || len(p2) != 2 {
		t.Errorf("projects leaked: p1=%d p2=%d", len(p1), len(p2))
	}
}

func TestDB_WatchSimilarities(t *testing.T) {
	db := setupTestDB(t)
	ctx := testContext(t)

	ch := db.WatchSimilarities(ctx, "p1")
	if initial := receiveWithin(t, ch); len(initial) != 0 {
		t.Fatalf("initial snapshot should be empty, got %d", len(initial))
	}

	gen, _ := db.NextGeneration(ctx, "p1")
	db.ReplaceSimilarities(ctx, "p1", gen, []similarity.Record{pair("a", "b", 0.9)})

	if got := receiveWithin(t, ch); len(got) != 1 {
		t.Errorf("expected 1 record after replace, got %d", len(got))
	}
}
