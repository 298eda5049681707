package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/papertrail/papertrail/internal/project"
	"github.com/papertrail/papertrail/internal/storage"
)

func TestResolveProjectID(t *testing.T) {
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	if err := db.UpsertProject(ctx, project.Project{ID: "chi-2026-thesis", Title: "CHI 2026 Thesis"}); err != nil {
		t.Fatal(err)
	}

	if id, existing := mustResolveProjectID(ctx, db, "", "Phylo Review"); id != "phylo-review" || existing {
		t.Errorf("fresh title: got %q, %v", id, existing)
	}

	id, existing := mustResolveProjectID(ctx, db, "", "CHI 2026: Thesis")
	if existing || !strings.HasPrefix(id, "chi-2026-thesis-") || len(id) != len("chi-2026-thesis-")+8 {
		t.Errorf("taken slug: got %q, %v; want a suffixed new ID", id, existing)
	}
	if err := project.ValidateID(id); err != nil {
		t.Errorf("suffixed ID %q is invalid: %v", id, err)
	}

	if id, existing := mustResolveProjectID(ctx, db, "chi-2026-thesis", "Renamed"); id != "chi-2026-thesis" || !existing {
		t.Errorf("explicit existing ID: got %q, %v", id, existing)
	}

	id, existing = mustResolveProjectID(ctx, db, "", "???")
	if existing || project.ValidateID(id) != nil {
		t.Errorf("untitled: got %q, %v; want a random valid ID", id, existing)
	}
}
