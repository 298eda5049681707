package main

import (
	"context"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/papertrail/papertrail/internal/recompute"
	"github.com/papertrail/papertrail/internal/similarity"
	"github.com/papertrail/papertrail/internal/storage"
	"github.com/spf13/cobra"
)

var similarityCmd = &cobra.Command{
	Use:     "similarity",
	Aliases: []string{"sim"},
	Short:   "Manage the project's cached similarity records",
}

func init() {
	rootCmd.AddCommand(similarityCmd)
	similarityCmd.AddCommand(similarityRecomputeCmd, similarityListCmd, similarityImportCmd, similarityExportCmd)
}

var similarityRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Fetch pairwise similarities from the scoring service and replace the cache",
	Long: `Send the project's papers to the similarity endpoint and replace the
stored similarity set with the response.

If the service fails the stored set is left unchanged. An empty response
clears it.`,
	Args: cobra.NoArgs,
	RunE: runSimilarityRecompute,
}

func runSimilarityRecompute(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()
	mustRequireEndpoint(e.cfg.RequireSimilarity)

	ctx := context.Background()
	papers, err := e.db.ListPapers(ctx, e.project)
	if err != nil {
		exitWithError(ExitError, "listing papers: %v", err)
	}

	syncer := recompute.NewSyncer(newScoringClient(e.cfg, e.logger), e.db, recompute.WithLogger(e.logger))
	start := time.Now()
	report := syncer.Recompute(ctx, e.project, papers)
	elapsed := time.Since(start)

	code := ExitSuccess
	switch report.Outcome {
	case recompute.OutcomeFetchFailed:
		code = ExitServiceFailure
	case recompute.OutcomeStoreFailed:
		code = ExitError
	}

	if humanOutput {
		printReport(report)
		outputHuman("Done in %s\n", formatDuration(elapsed))
	} else {
		outputJSON(reportResponse(report))
	}
	if code != ExitSuccess {
		e.close()
		os.Exit(code)
	}
	return nil
}

// ReportResponse is the JSON form of a recompute report.
type ReportResponse struct {
	recompute.Report
	Error string `json:"error,omitempty"`
}

func reportResponse(r recompute.Report) ReportResponse {
	resp := ReportResponse{Report: r}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}

func printReport(r recompute.Report) {
	switch r.Outcome {
	case recompute.OutcomeSkipped:
		outputHuman("Nothing to recompute: no papers in %s\n", r.ProjectID)
	case recompute.OutcomeFetchFailed:
		outputHuman("Similarity service failed, kept previous results: %v\n", r.Err)
	case recompute.OutcomeStale:
		outputHuman("Result superseded by a newer recompute, discarded\n")
	case recompute.OutcomeStoreFailed:
		outputHuman("Storing similarities failed (%d failure(s)): %v\n", r.Failures, r.Err)
	case recompute.OutcomeCleared:
		outputHuman("Service returned no similarities; cleared %s stored record(s)\n", humanize.Comma(int64(r.Deleted)))
	case recompute.OutcomeReplaced:
		outputHuman("Stored %s similarity record(s) as generation %d\n", humanize.Comma(int64(r.Records)), r.Generation)
		if r.Failures > 0 {
			outputHuman("  %d write(s) failed\n", r.Failures)
		}
	}
}

var similarityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the current similarity records",
	Args:  cobra.NoArgs,
	RunE:  runSimilarityList,
}

func runSimilarityList(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	records, err := e.db.CurrentSimilarities(context.Background(), e.project)
	if err != nil {
		exitWithError(ExitError, "listing similarities: %v", err)
	}
	if records == nil {
		records = []similarity.Record{}
	}

	if !humanOutput {
		outputJSON(records)
		return nil
	}

	if len(records) == 0 {
		outputHuman("No similarity records. Run 'pt similarity recompute'.\n")
		return nil
	}
	for _, r := range records {
		src, tgt, ok := r.Endpoints()
		if !ok {
			outputHuman("  (unresolvable record)\n")
			continue
		}
		if score, ok := r.Score(similarity.MetricOverall); ok {
			outputHuman("  %s  %s  %.3f\n", shortID(src), shortID(tgt), score)
		} else {
			outputHuman("  %s  %s  -\n", shortID(src), shortID(tgt))
		}
	}
	outputHuman("\n%s record(s)\n", humanize.Comma(int64(len(records))))
	return nil
}

var similarityImportCmd = &cobra.Command{
	Use:   "import <records.jsonl>",
	Short: "Replace the similarity cache from a JSONL file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilarityImport,
}

func runSimilarityImport(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	records, err := storage.ReadRecords(args[0])
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", args[0], err)
	}

	ctx := context.Background()
	gen, err := e.db.NextGeneration(ctx, e.project)
	if err != nil {
		exitWithError(ExitError, "allocating generation: %v", err)
	}
	deleted, err := e.db.ReplaceSimilarities(ctx, e.project, gen, records)
	if err != nil {
		exitWithError(ExitError, "storing similarities: %v", err)
	}

	if humanOutput {
		outputHuman("Imported %d similarity record(s) as generation %d, replacing %d\n", len(records), gen, deleted)
	} else {
		outputJSON(StatusResponse{Status: "imported", Path: args[0], Count: len(records)})
	}
	return nil
}

var similarityExportCmd = &cobra.Command{
	Use:   "export <records.jsonl>",
	Short: "Export the current similarity records to JSONL",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilarityExport,
}

func runSimilarityExport(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	records, err := e.db.CurrentSimilarities(context.Background(), e.project)
	if err != nil {
		exitWithError(ExitError, "listing similarities: %v", err)
	}
	if err := storage.WriteRecords(args[0], records); err != nil {
		exitWithError(ExitError, "writing %s: %v", args[0], err)
	}

	if humanOutput {
		outputHuman("Exported %d similarity record(s) to %s\n", len(records), args[0])
	} else {
		outputJSON(StatusResponse{Status: "exported", Path: args[0], Count: len(records)})
	}
	return nil
}
