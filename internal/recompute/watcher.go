package recompute

import (
	"context"
	"sync"

	"github.com/papertrail/papertrail/internal/paper"
)

// PaperSource is a live query over a project's papers.
type PaperSource interface {
	WatchPapers(ctx context.Context, projectID string) <-chan []paper.Paper
}

// Watcher recomputes a project's similarities whenever its paper snapshot
// changes in a way the Trigger cares about.
type Watcher struct {
	source  PaperSource
	trigger *Trigger
	syncer  *Syncer

	// OnReport, if set, receives the report of every recompute the watcher runs.
	OnReport func(Report)
}

// NewWatcher creates a Watcher.
func NewWatcher(source PaperSource, trigger *Trigger, syncer *Syncer) *Watcher {
	return &Watcher{source: source, trigger: trigger, syncer: syncer}
}

// Run follows the project until ctx is done. Recomputes run in the
// background so that a newer snapshot can supersede one still fetching.
// Run waits for in-flight recomputes before returning ctx.Err().
func (w *Watcher) Run(ctx context.Context, projectID string) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for papers := range w.source.WatchPapers(ctx, projectID) {
		if !w.trigger.Observe(projectID, papers) {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			report := w.syncer.Recompute(ctx, projectID, papers)
			if w.OnReport != nil {
				w.OnReport(report)
			}
		}()
	}
	return ctx.Err()
}
