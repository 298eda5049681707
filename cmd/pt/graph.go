package main

import (
	"context"
	"os"
	"strings"

	"github.com/papertrail/papertrail/internal/similarity"
	"github.com/papertrail/papertrail/internal/viz"
	"github.com/spf13/cobra"
)

var (
	graphMetric   string
	graphMinScore float64
	graphHTML     bool
	graphLayout   string
	graphOutput   string
)

func init() {
	rootCmd.AddCommand(graphCmd, neighborsCmd)

	for _, c := range []*cobra.Command{graphCmd, neighborsCmd} {
		c.Flags().StringVar(&graphMetric, "metric", string(similarity.DefaultMetric), "Score to filter on: overall, title, abstract, authors, references")
		c.Flags().Float64Var(&graphMinScore, "min-score", similarity.DefaultMinScore, "Drop links scoring below this value")
	}
	graphCmd.Flags().BoolVar(&graphHTML, "html", false, "Render an interactive HTML page instead of JSON")
	graphCmd.Flags().StringVar(&graphLayout, "layout", "force", "HTML layout: "+strings.Join(viz.ValidLayouts, ", "))
	graphCmd.Flags().StringVarP(&graphOutput, "output", "o", "", "Write HTML to a file instead of stdout")
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build the paper similarity graph for the current project",
	Long: `Build the similarity graph from the stored similarity records.

Links scoring below --min-score on the chosen --metric, links whose
endpoints are not in the library and unscored links are dropped. Output is JSON unless --html or --human is given.

Examples:
  pt graph --min-score 0.6
  pt graph --metric abstract --html -o graph.html`,
	Args: cobra.NoArgs,
	RunE: runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	g := mustBuildGraph(e)

	if graphHTML {
		html, err := viz.GenerateHTML(g, viz.HTMLOptions{Layout: graphLayout, Title: e.project})
		if err != nil {
			exitWithError(ExitDataError, "generating HTML: %v", err)
		}
		if graphOutput == "" {
			outputHuman("%s", html)
			return nil
		}
		if err := os.WriteFile(graphOutput, []byte(html), 0644); err != nil {
			exitWithError(ExitError, "writing %s: %v", graphOutput, err)
		}
		if humanOutput {
			outputHuman("Wrote %s\n", graphOutput)
		} else {
			outputJSON(StatusResponse{Status: "written", Path: graphOutput})
		}
		return nil
	}

	if !humanOutput {
		outputJSON(struct {
			*similarity.Graph
			State   similarity.State `json:"state"`
			Message string           `json:"message,omitempty"`
		}{g, g.State(), g.State().Message()})
		return nil
	}

	if g.State() != similarity.StateReady {
		outputHuman("%s\n", g.State().Message())
		return nil
	}
	titles := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		titles[n.ID] = n.Title
	}
	outputHuman("%d paper(s), %d link(s) on %s >= %.2f\n\n", len(g.Nodes), len(g.Edges), g.Metric, g.MinScore)
	for _, edge := range g.Edges {
		outputHuman("  %.3f  %s\n         %s\n",
			edge.Value,
			truncateString(titles[edge.Source], ListTitleMaxLen),
			truncateString(titles[edge.Target], ListTitleMaxLen))
	}
	if d := g.Dropped.Total(); d > 0 {
		outputHuman("\n%d record(s) dropped\n", d)
	}
	return nil
}

var neighborsCmd = &cobra.Command{
	Use:   "neighbors <paper-id>",
	Short: "List the papers most similar to a paper",
	Args:  cobra.ExactArgs(1),
	RunE:  runNeighbors,
}

func runNeighbors(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	root := mustGetPaper(e, args[0])
	neighbors := mustBuildGraph(e).Neighbors(root.ID)
	if neighbors == nil {
		neighbors = []similarity.Neighbor{}
	}

	if !humanOutput {
		outputJSON(neighbors)
		return nil
	}

	outputHuman("%s\n", truncateString(root.DisplayTitle(), DetailTitleMaxLen))
	if len(neighbors) == 0 {
		outputHuman("  No links for current filter / threshold\n")
		return nil
	}
	for _, n := range neighbors {
		outputHuman("  %.3f  %s\n", n.Score, truncateString(n.Node.Title, ListTitleMaxLen))
	}
	return nil
}

// mustBuildGraph loads papers and current similarities and builds the
// filtered graph for the --metric and --min-score flags.
func mustBuildGraph(e *env) *similarity.Graph {
	metric, err := similarity.ParseMetric(graphMetric)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	ctx := context.Background()
	papers, err := e.db.ListPapers(ctx, e.project)
	if err != nil {
		exitWithError(ExitError, "listing papers: %v", err)
	}
	records, err := e.db.CurrentSimilarities(ctx, e.project)
	if err != nil {
		exitWithError(ExitError, "listing similarities: %v", err)
	}

	g := similarity.BuildGraph(papers, records, metric, graphMinScore)
	e.logger.Debug().
		Int("nodes", len(g.Nodes)).
		Int("edges", len(g.Edges)).
		Int("dropped", g.Dropped.Total()).
		Msg("built similarity graph")
	return g
}
