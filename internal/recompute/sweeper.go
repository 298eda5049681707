package recompute

import (
	"context"
	"fmt"
	"sync"

	"github.com/papertrail/papertrail/internal/paper"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSweepSchedule re-runs every project once an hour.
const DefaultSweepSchedule = "@every 1h"

// ProjectLister enumerates projects and their papers for a sweep.
type ProjectLister interface {
	ProjectIDs(ctx context.Context) ([]string, error)
	ListPapers(ctx context.Context, projectID string) ([]paper.Paper, error)
}

// Sweeper periodically recomputes every project, repairing sets left
// partial by an earlier failure. Overlapping sweeps are skipped.
type Sweeper struct {
	lister ProjectLister
	syncer *Syncer
	logger zerolog.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	entryID cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewSweeper creates a Sweeper. Call Schedule and Start to run it.
func NewSweeper(lister ProjectLister, syncer *Syncer, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		lister: lister,
		syncer: syncer,
		logger: logger,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Schedule sets the sweep schedule, replacing any previous one. expr is a
// standard five-field cron expression or a descriptor such as "@every 30m".
func (s *Sweeper) Schedule(expr string) error {
	if expr == "" {
		expr = DefaultSweepSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}

	id, err := s.cron.AddFunc(expr, s.run)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", expr, err)
	}
	s.entryID = id
	return nil
}

// Start begins running scheduled sweeps until ctx is done or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.ctx = ctx
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.SweepAll(ctx)
}

// SweepAll recomputes every project once, in sequence.
func (s *Sweeper) SweepAll(ctx context.Context) []Report {
	projects, err := s.lister.ProjectIDs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweep: listing projects failed")
		return nil
	}

	reports := make([]Report, 0, len(projects))
	for _, projectID := range projects {
		if ctx.Err() != nil {
			break
		}
		papers, err := s.lister.ListPapers(ctx, projectID)
		if err != nil {
			s.logger.Error().Err(err).Str("project_id", projectID).Msg("sweep: listing papers failed")
			continue
		}
		report := s.syncer.Recompute(ctx, projectID, papers)
		s.logger.Info().
			Str("project_id", projectID).
			Stringer("outcome", report.Outcome).
			Int("records", report.Records).
			Msg("sweep recompute")
		reports = append(reports, report)
	}
	return reports
}
