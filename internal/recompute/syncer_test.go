package recompute

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/papertrail/papertrail/internal/paper"
	"github.com/papertrail/papertrail/internal/scoring"
	"github.com/papertrail/papertrail/internal/similarity"
	"github.com/papertrail/papertrail/internal/storage"
)

// fakeFetcher answers with fn and counts calls.
type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, papers []paper.Paper) scoring.SimilarityResult
}

func (f *fakeFetcher) ComputeSimilarities(ctx context.Context, projectID string, papers []paper.Paper) scoring.SimilarityResult {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fn(call, papers)
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func recordsN(n int) []similarity.Record {
	out := make([]similarity.Record, n)
	for i := range out {
		out[i] = similarity.Record{"paper1_id": "a", "paper2_id": fmt.Sprintf("b%d", i), "overall_score": 0.5}
	}
	return out
}

func fixed(n int) *fakeFetcher {
	return &fakeFetcher{fn: func(int, []paper.Paper) scoring.SimilarityResult {
		return scoring.SimilarityResult{Records: recordsN(n)}
	}}
}

// memStore is a record-level store without transactional replace.
type memStore struct {
	mu         sync.Mutex
	records    map[string]storage.StoredSimilarity
	nextID     int
	nextGen    int64
	published  int64
	failDelete map[string]bool
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]storage.StoredSimilarity), failDelete: make(map[string]bool)}
}

func (m *memStore) ListSimilarities(ctx context.Context, projectID string) ([]storage.StoredSimilarity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.StoredSimilarity
	for _, s := range m.records {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DeleteSimilarity(ctx context.Context, projectID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete[id] {
		return errors.New("disk full")
	}
	delete(m.records, id)
	return nil
}

func (m *memStore) PutSimilarity(ctx context.Context, projectID string, generation int64, rec similarity.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("s%04d", m.nextID)
	m.records[id] = storage.StoredSimilarity{ID: id, ProjectID: projectID, Generation: generation, CreatedAt: time.Now(), Record: rec}
	return nil
}

func (m *memStore) NextGeneration(ctx context.Context, projectID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextGen++
	return m.nextGen, nil
}

func (m *memStore) PublishGeneration(ctx context.Context, projectID string, generation int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = max(m.published, generation)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSyncer_SkipsEmptyInput(t *testing.T) {
	f := fixed(1)
	s := NewSyncer(f, newMemStore())
	ctx := context.Background()

	if r := s.Recompute(ctx, "", papersN(2)); r.Outcome != OutcomeSkipped {
		t.Errorf("empty project: outcome = %v, want skipped", r.Outcome)
	}
	if r := s.Recompute(ctx, "proj", nil); r.Outcome != OutcomeSkipped {
		t.Errorf("no papers: outcome = %v, want skipped", r.Outcome)
	}
	if f.Calls() != 0 {
		t.Errorf("fetcher called %d times, want 0", f.Calls())
	}
}

func TestSyncer_ReplacesNotAppends(t *testing.T) {
	sizes := []int{3, 2}
	f := &fakeFetcher{fn: func(call int, _ []paper.Paper) scoring.SimilarityResult {
		return scoring.SimilarityResult{Records: recordsN(sizes[call-1])}
	}}
	store := newMemStore()
	s := NewSyncer(f, store)
	ctx := context.Background()

	if r := s.Recompute(ctx, "proj", papersN(3)); r.Outcome != OutcomeReplaced {
		t.Fatalf("first recompute: outcome = %v", r.Outcome)
	}
	r := s.Recompute(ctx, "proj", papersN(3))
	if r.Outcome != OutcomeReplaced {
		t.Fatalf("second recompute: outcome = %v", r.Outcome)
	}
	if store.count() != 2 {
		t.Errorf("stored %d records, want exactly 2", store.count())
	}
	if r.Deleted != 3 {
		t.Errorf("Deleted = %d, want 3", r.Deleted)
	}
	if store.published != r.Generation {
		t.Errorf("published generation = %d, want %d", store.published, r.Generation)
	}
}

func TestSyncer_FetchFailureKeepsPrevious(t *testing.T) {
	f := &fakeFetcher{fn: func(call int, _ []paper.Paper) scoring.SimilarityResult {
		if call == 1 {
			return scoring.SimilarityResult{Records: recordsN(2)}
		}
		return scoring.SimilarityResult{Err: scoring.ErrUnavailable}
	}}
	store := newMemStore()
	s := NewSyncer(f, store)
	ctx := context.Background()

	s.Recompute(ctx, "proj", papersN(2))
	r := s.Recompute(ctx, "proj", papersN(2))
	if r.Outcome != OutcomeFetchFailed {
		t.Errorf("outcome = %v, want fetch_failed", r.Outcome)
	}
	if !errors.Is(r.Err, scoring.ErrUnavailable) {
		t.Errorf("Err = %v, want ErrUnavailable", r.Err)
	}
	if store.count() != 2 {
		t.Errorf("failed fetch changed stored set: %d records", store.count())
	}
}

func TestSyncer_EmptyResultClears(t *testing.T) {
	sizes := []int{2, 0}
	f := &fakeFetcher{fn: func(call int, _ []paper.Paper) scoring.SimilarityResult {
		return scoring.SimilarityResult{Records: recordsN(sizes[call-1])}
	}}
	store := newMemStore()
	s := NewSyncer(f, store)
	ctx := context.Background()

	s.Recompute(ctx, "proj", papersN(2))
	r := s.Recompute(ctx, "proj", papersN(1))
	if r.Outcome != OutcomeCleared {
		t.Errorf("outcome = %v, want cleared", r.Outcome)
	}
	if store.count() != 0 {
		t.Errorf("expected empty set, got %d", store.count())
	}
}

func TestSyncer_DeleteFailureIsBestEffort(t *testing.T) {
	f := fixed(2)
	store := newMemStore()
	s := NewSyncer(f, store)
	ctx := context.Background()

	s.Recompute(ctx, "proj", papersN(2))
	store.failDelete["s0001"] = true

	r := s.Recompute(ctx, "proj", papersN(2))
	if r.Outcome != OutcomeStoreFailed {
		t.Errorf("outcome = %v, want store_failed", r.Outcome)
	}
	if r.Failures != 1 || r.Deleted != 1 {
		t.Errorf("Failures=%d Deleted=%d, want 1 and 1", r.Failures, r.Deleted)
	}
	// The surviving old record plus both new ones.
	if store.count() != 3 {
		t.Errorf("stored %d records, want 3", store.count())
	}
}

func TestSyncer_DiscardsSupersededResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := &fakeFetcher{fn: func(call int, _ []paper.Paper) scoring.SimilarityResult {
		if call == 1 {
			close(started)
			<-release
			return scoring.SimilarityResult{Records: recordsN(5)}
		}
		return scoring.SimilarityResult{Records: recordsN(1)}
	}}
	store := newMemStore()
	s := NewSyncer(f, store)
	ctx := context.Background()

	first := make(chan Report, 1)
	go func() { first <- s.Recompute(ctx, "proj", papersN(1)) }()
	<-started

	if r := s.Recompute(ctx, "proj", papersN(2)); r.Outcome != OutcomeReplaced {
		t.Fatalf("newer recompute: outcome = %v", r.Outcome)
	}
	close(release)

	if r := <-first; r.Outcome != OutcomeStale {
		t.Errorf("older recompute: outcome = %v, want stale", r.Outcome)
	}
	if store.count() != 1 {
		t.Errorf("stale result was applied: %d records", store.count())
	}
}

func TestSyncer_UsesReplacer(t *testing.T) {
	db := openTestDB(t)
	sizes := []int{4, 2}
	f := &fakeFetcher{fn: func(call int, _ []paper.Paper) scoring.SimilarityResult {
		return scoring.SimilarityResult{Records: recordsN(sizes[call-1])}
	}}
	s := NewSyncer(f, db)
	ctx := context.Background()

	s.Recompute(ctx, "proj", papersN(3))
	r := s.Recompute(ctx, "proj", papersN(3))
	if r.Outcome != OutcomeReplaced {
		t.Fatalf("outcome = %v, want replaced", r.Outcome)
	}

	current, err := db.CurrentSimilarities(ctx, "proj")
	if err != nil {
		t.Fatal(err)
	}
	if len(current) != 2 {
		t.Errorf("current set has %d records, want 2", len(current))
	}
	gen, _ := db.PublishedGeneration(ctx, "proj")
	if gen != r.Generation {
		t.Errorf("published generation = %d, want %d", gen, r.Generation)
	}
}

func TestSyncer_ReplacerReportsDeleted(t *testing.T) {
	db := openTestDB(t)
	sizes := []int{3, 0}
	f := &fakeFetcher{fn: func(call int, _ []paper.Paper) scoring.SimilarityResult {
		return scoring.SimilarityResult{Records: recordsN(sizes[call-1])}
	}}
	s := NewSyncer(f, db)
	ctx := context.Background()

	if r := s.Recompute(ctx, "proj", papersN(3)); r.Outcome != OutcomeReplaced || r.Records != 3 {
		t.Fatalf("first recompute: %+v", r)
	}
	r := s.Recompute(ctx, "proj", papersN(3))
	if r.Outcome != OutcomeCleared {
		t.Fatalf("outcome = %v, want cleared", r.Outcome)
	}
	if r.Deleted != 3 {
		t.Errorf("Deleted = %d, want 3", r.Deleted)
	}
}

func TestOutcome_String(t *testing.T) {
	if OutcomeFetchFailed.String() != "fetch_failed" {
		t.Errorf("String() = %q", OutcomeFetchFailed.String())
	}
	if Outcome(99).String() != "outcome(99)" {
		t.Errorf("unknown outcome String() = %q", Outcome(99).String())
	}
}
