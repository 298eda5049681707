package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// setupTestDB opens a fresh database with a deterministic, strictly
// increasing clock.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var mu sync.Mutex
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	})
	return db
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestOpenDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenDB(path)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = OpenDB(path)
	if err != nil {
		t.Fatalf("reopening existing database failed: %v", err)
	}
	db.Close()
}

func TestPrepareFTSQuery(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"protein folding", "protein folding"},
		{"  spaced  ", "spaced"},
		{"state-of-the-art", `"state-of-the-art"`},
		{`say "hi"`, `"say ""hi"""`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := prepareFTSQuery(tt.input); got != tt.want {
			t.Errorf("prepareFTSQuery(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func contextWithCancel(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx, cancel
}
