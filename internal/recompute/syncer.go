// Package recompute keeps a project's stored similarity set in step with its
// papers: a Trigger gates live paper snapshots, a Syncer fetches and
// replaces similarity records, and a Sweeper periodically re-runs every
// project.
package recompute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/papertrail/papertrail/internal/paper"
	"github.com/papertrail/papertrail/internal/scoring"
	"github.com/papertrail/papertrail/internal/similarity"
	"github.com/papertrail/papertrail/internal/storage"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentWrites bounds the per-record fan-out of the sequential path.
const maxConcurrentWrites = 8

// Fetcher computes similarity records for a paper set.
type Fetcher interface {
	ComputeSimilarities(ctx context.Context, projectID string, papers []paper.Paper) scoring.SimilarityResult
}

// Store is the record-level similarity persistence the Syncer writes to.
type Store interface {
	ListSimilarities(ctx context.Context, projectID string) ([]storage.StoredSimilarity, error)
	DeleteSimilarity(ctx context.Context, projectID, id string) error
	PutSimilarity(ctx context.Context, projectID string, generation int64, rec similarity.Record) error
	NextGeneration(ctx context.Context, projectID string) (int64, error)
	PublishGeneration(ctx context.Context, projectID string, generation int64) error
}

// Replacer is implemented by stores that can swap a project's whole record
// set in one transaction. When the Store implements it, the Syncer uses it
// instead of per-record deletes and writes. It reports how many stored
// records the swap removed.
type Replacer interface {
	ReplaceSimilarities(ctx context.Context, projectID string, generation int64, recs []similarity.Record) (int, error)
}

// Outcome classifies what a Recompute call did.
type Outcome int

const (
	OutcomeSkipped     Outcome = iota // empty project ID or no papers
	OutcomeFetchFailed                // service failed; stored set unchanged
	OutcomeStale                      // a newer recompute superseded this one
	OutcomeStoreFailed                // some store operations failed
	OutcomeCleared                    // service returned no records; set emptied
	OutcomeReplaced                   // stored set replaced with new records
)

var outcomeNames = map[Outcome]string{
	OutcomeSkipped:     "skipped",
	OutcomeFetchFailed: "fetch_failed",
	OutcomeStale:       "stale",
	OutcomeStoreFailed: "store_failed",
	OutcomeCleared:     "cleared",
	OutcomeReplaced:    "replaced",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// MarshalText renders the outcome by name in JSON output.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Report summarizes one Recompute call.
type Report struct {
	ProjectID  string  `json:"project_id"`
	Outcome    Outcome `json:"outcome"`
	Generation int64   `json:"generation,omitempty"`
	Records    int     `json:"records"`
	Deleted    int     `json:"deleted,omitempty"`
	Failures   int     `json:"failures,omitempty"`
	Err        error   `json:"-"`
}

// Syncer is the only writer of persisted similarity state.
type Syncer struct {
	fetcher Fetcher
	store   Store
	logger  zerolog.Logger

	mu  sync.Mutex
	seq map[string]uint64
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithLogger sets the logger for store and fetch failures.
func WithLogger(l zerolog.Logger) SyncerOption {
	return func(s *Syncer) {
		s.logger = l
	}
}

// NewSyncer creates a Syncer.
func NewSyncer(fetcher Fetcher, store Store, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		fetcher: fetcher,
		store:   store,
		logger:  zerolog.Nop(),
		seq:     make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Syncer) begin(projectID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[projectID]++
	return s.seq[projectID]
}

func (s *Syncer) latest(projectID string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq[projectID] == seq
}

// Recompute fetches fresh similarities for papers and replaces the
// project's stored set with them.
//
// Nothing happens for an empty project ID or paper list. A failed fetch
// leaves the stored set untouched. If another Recompute for the same
// project starts while this one is fetching, this one's result is dropped.
// Store failures are logged and counted, never retried.
func (s *Syncer) Recompute(ctx context.Context, projectID string, papers []paper.Paper) Report {
	report := Report{ProjectID: projectID}
	if projectID == "" || len(papers) == 0 {
		report.Outcome = OutcomeSkipped
		return report
	}

	seq := s.begin(projectID)
	log := s.logger.With().Str("project_id", projectID).Uint64("seq", seq).Logger()

	gen, err := s.store.NextGeneration(ctx, projectID)
	if err != nil {
		log.Error().Err(err).Msg("allocating similarity generation failed")
		report.Outcome = OutcomeStoreFailed
		report.Err = err
		return report
	}
	report.Generation = gen

	result := s.fetcher.ComputeSimilarities(ctx, projectID, papers)
	if !result.OK() {
		log.Warn().Err(result.Err).Msg("keeping previous similarities")
		report.Outcome = OutcomeFetchFailed
		report.Err = result.Err
		return report
	}
	if !s.latest(projectID, seq) {
		log.Debug().Msg("discarding superseded similarity result")
		report.Outcome = OutcomeStale
		return report
	}
	report.Records = len(result.Records)

	if r, ok := s.store.(Replacer); ok {
		return s.replace(ctx, log, r, report, result.Records)
	}
	return s.sync(ctx, log, report, result.Records)
}

func (s *Syncer) replace(ctx context.Context, log zerolog.Logger, r Replacer, report Report, recs []similarity.Record) Report {
	deleted, err := r.ReplaceSimilarities(ctx, report.ProjectID, report.Generation, recs)
	report.Deleted = deleted
	switch {
	case errors.Is(err, storage.ErrStaleGeneration):
		log.Debug().Err(err).Msg("newer similarity generation already published")
		report.Outcome = OutcomeStale
	case err != nil:
		log.Error().Err(err).Msg("replacing similarities failed")
		report.Outcome = OutcomeStoreFailed
		report.Failures = 1
		report.Err = err
	case len(recs) == 0:
		report.Outcome = OutcomeCleared
	default:
		report.Outcome = OutcomeReplaced
	}
	return report
}

// sync is the record-by-record path: delete every stored record, write the
// new ones, then publish the generation. Each operation is best-effort.
func (s *Syncer) sync(ctx context.Context, log zerolog.Logger, report Report, recs []similarity.Record) Report {
	projectID := report.ProjectID
	var failures atomic.Int64
	var firstErr error

	existing, err := s.store.ListSimilarities(ctx, projectID)
	if err != nil {
		log.Error().Err(err).Msg("listing stored similarities failed")
		failures.Add(1)
		firstErr = err
	}

	var deleted atomic.Int64
	var g errgroup.Group
	g.SetLimit(maxConcurrentWrites)
	for _, old := range existing {
		g.Go(func() error {
			if err := s.store.DeleteSimilarity(ctx, projectID, old.ID); err != nil {
				log.Error().Err(err).Str("similarity_id", old.ID).Msg("deleting similarity failed")
				failures.Add(1)
				return err
			}
			deleted.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil && firstErr == nil {
		firstErr = err
	}
	report.Deleted = int(deleted.Load())

	if len(recs) > 0 {
		var g errgroup.Group
		g.SetLimit(maxConcurrentWrites)
		for _, rec := range recs {
			g.Go(func() error {
				if err := s.store.PutSimilarity(ctx, projectID, report.Generation, rec); err != nil {
					log.Error().Err(err).Msg("writing similarity failed")
					failures.Add(1)
					return err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := s.store.PublishGeneration(ctx, projectID, report.Generation); err != nil {
		log.Error().Err(err).Msg("publishing similarity generation failed")
		failures.Add(1)
		if firstErr == nil {
			firstErr = err
		}
	}

	report.Failures = int(failures.Load())
	switch {
	case report.Failures > 0:
		report.Outcome = OutcomeStoreFailed
		report.Err = firstErr
	case len(recs) == 0:
		report.Outcome = OutcomeCleared
	default:
		report.Outcome = OutcomeReplaced
	}
	return report
}
