package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/papertrail/papertrail/internal/recompute"
	"github.com/spf13/cobra"
)

var (
	watchNoSweep bool
	watchPoll    time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchNoSweep, "no-sweep", false, "Disable the periodic sweep over all projects")
	watchCmd.Flags().DurationVar(&watchPoll, "poll", 2*time.Second, "How often to check for papers added by other pt processes (0 disables)")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompute similarities whenever the project's papers change",
	Long: `Follow the current project's papers and recompute its similarity set
whenever papers are added or updated. Each recompute prints one JSON
report line (or a summary line with --human).

Unless --no-sweep is given, every project is also recomputed on the
configured sweep_schedule to repair sets left partial by a failure.

Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()
	mustRequireEndpoint(e.cfg.RequireSimilarity)

	e.db.SetPollInterval(watchPoll)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer := recompute.NewSyncer(newScoringClient(e.cfg, e.logger), e.db, recompute.WithLogger(e.logger))
	watcher := recompute.NewWatcher(e.db, recompute.NewTrigger(mustKeyFunc(e.cfg)), syncer)
	var outMu sync.Mutex
	watcher.OnReport = func(r recompute.Report) {
		outMu.Lock()
		defer outMu.Unlock()
		if humanOutput {
			printReport(r)
		} else {
			outputJSON(reportResponse(r))
		}
	}

	if !watchNoSweep {
		sweeper := recompute.NewSweeper(e.db, syncer, e.logger)
		if err := sweeper.Schedule(e.cfg.SweepSchedule); err != nil {
			exitWithError(ExitConfigError, "sweep schedule: %v", err)
		}
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	e.logger.Info().Str("project", e.project).Msg("watching papers")
	if err := watcher.Run(ctx, e.project); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
