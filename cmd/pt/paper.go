package main

import (
	"context"
	"errors"
	"os"

	"github.com/papertrail/papertrail/internal/author"
	"github.com/papertrail/papertrail/internal/importer"
	"github.com/papertrail/papertrail/internal/ingest"
	"github.com/papertrail/papertrail/internal/paper"
	"github.com/papertrail/papertrail/internal/storage"
	"github.com/spf13/cobra"
)

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Manage papers in a project",
}

// Flags shared by paper add and paper update.
var (
	paperTitle      string
	paperAuthor     string
	paperAbstract   string
	paperReferences string
	paperVenue      string
	paperYear       int

	paperListSearch  string
	paperListLimit   int
	paperListAuthors []string

	paperImportFormat string
)

func init() {
	rootCmd.AddCommand(paperCmd)
	paperCmd.AddCommand(paperAddCmd, paperListCmd, paperShowCmd, paperUpdateCmd, paperImportCmd, paperExportCmd)

	for _, c := range []*cobra.Command{paperAddCmd, paperUpdateCmd} {
		c.Flags().StringVar(&paperTitle, "title", "", "Paper title")
		c.Flags().StringVar(&paperAuthor, "author", "", `Authors, e.g. "Smith, J. and Doe, A."`)
		c.Flags().StringVar(&paperAbstract, "abstract", "", "Abstract text")
		c.Flags().StringVar(&paperReferences, "references", "", "Raw references section")
		c.Flags().StringVar(&paperVenue, "venue", "", "Journal or conference")
		c.Flags().IntVar(&paperYear, "year", 0, "Publication year")
	}

	paperListCmd.Flags().StringVarP(&paperListSearch, "search", "s", "", "Full-text search query")
	paperListCmd.Flags().IntVarP(&paperListLimit, "limit", "n", DefaultListLimit, "Maximum results for --search")
	paperListCmd.Flags().StringArrayVarP(&paperListAuthors, "author", "a", nil, `Filter by author ("Yu", "Timothy Yu" or "Yu, Timothy"); repeat to require several`)

	paperImportCmd.Flags().StringVar(&paperImportFormat, "format", "jsonl", "Input format: jsonl or paperpile")
}

var paperAddCmd = &cobra.Command{
	Use:   "add [file.pdf]",
	Short: "Add a paper, reading metadata from a PDF if given",
	Long: `Add a paper to the current project.

When a PDF is given its embedded title, author and subject are used, with
the file name as the title fallback. Flags override the extracted values.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPaperAdd,
}

func runPaperAdd(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	var p paper.Paper
	if len(args) == 1 {
		meta, err := ingest.ExtractMetadata(args[0])
		if err != nil {
			e.logger.Warn().Err(err).Str("file", args[0]).Msg("reading PDF metadata; using file name")
			meta = ingest.Metadata{Title: ingest.TitleFromFileName(args[0])}
		}
		p = ingest.NewPaper(e.project, args[0], meta)
	} else {
		p = paper.Paper{ProjectID: e.project}
	}

	flags := cmd.Flags()
	if flags.Changed("title") {
		p.Title = paperTitle
	}
	if flags.Changed("author") {
		p.Author = paperAuthor
	}
	if flags.Changed("abstract") {
		p.Abstract = paperAbstract
	}
	if flags.Changed("references") {
		p.References = paperReferences
	}
	if flags.Changed("venue") {
		p.Venue = paperVenue
	}
	if flags.Changed("year") {
		p.Year = paperYear
	}

	id, err := e.db.AddPaper(context.Background(), p)
	if err != nil {
		if errors.Is(err, paper.ErrEmptyTitle) || errors.Is(err, paper.ErrEmptyProjectID) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "adding paper: %v", err)
	}

	if humanOutput {
		outputHuman("Added paper %s: %s\n", id, p.DisplayTitle())
	} else {
		outputJSON(StatusResponse{Status: "added", ID: id})
	}
	return nil
}

var paperListCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers in the current project, newest first",
	Args:  cobra.NoArgs,
	RunE:  runPaperList,
}

func runPaperList(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	ctx := context.Background()
	var (
		papers []paper.Paper
		err    error
	)
	if paperListSearch != "" {
		papers, err = e.db.SearchPapers(ctx, e.project, paperListSearch, paperListLimit)
	} else {
		papers, err = e.db.ListPapers(ctx, e.project)
	}
	if err != nil {
		exitWithError(ExitError, "listing papers: %v", err)
	}
	papers = filterByAuthor(papers, paperListAuthors)

	if humanOutput {
		if len(papers) == 0 {
			outputHuman("No papers in this project yet\n")
			return nil
		}
		for i, p := range papers {
			printPaperLine(i, p)
		}
		outputHuman("\n%d paper(s)\n", len(papers))
	} else {
		outputJSON(papers)
	}
	return nil
}

var paperShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a paper",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperShow,
}

func runPaperShow(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	p := mustGetPaper(e, args[0])
	if humanOutput {
		printPaperDetail(*p)
	} else {
		outputJSON(p)
	}
	return nil
}

var paperUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Overwrite paper fields with higher-fidelity values",
	Long: `Overwrite the fields given as flags. Fields not given are left untouched.
Every update increments the paper's version, which is what the similarity
recompute watches for.`,
	Args: cobra.ExactArgs(1),
	RunE: runPaperUpdate,
}

func runPaperUpdate(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	var u paper.Update
	flags := cmd.Flags()
	if flags.Changed("title") {
		u.Title = &paperTitle
	}
	if flags.Changed("author") {
		u.Author = &paperAuthor
	}
	if flags.Changed("abstract") {
		u.Abstract = &paperAbstract
	}
	if flags.Changed("references") {
		u.References = &paperReferences
	}
	if flags.Changed("venue") {
		u.Venue = &paperVenue
	}
	if flags.Changed("year") {
		u.Year = &paperYear
	}
	if u.IsEmpty() {
		exitWithError(ExitDataError, "nothing to update\n\nPass at least one of --title, --author, --abstract, --references, --venue, --year.")
	}

	p, err := e.db.UpdatePaper(context.Background(), e.project, args[0], u)
	if err != nil {
		if errors.Is(err, storage.ErrPaperNotFound) {
			exitWithError(ExitNotFound, "paper not found: %s", args[0])
		}
		exitWithError(ExitError, "updating paper: %v", err)
	}

	if humanOutput {
		outputHuman("Updated paper %s (version %d)\n", p.ID, p.Version)
	} else {
		outputJSON(p)
	}
	return nil
}

var paperImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import papers from a JSONL snapshot or a Paperpile export",
	Long: `Import papers from a JSONL file (one paper per line) or, with
--format paperpile, from a Paperpile JSON export. Papers whose ID already
exists in the project are updated; the rest are added.

Paperpile entries get IDs derived from the project and the entry, so
importing the same export again updates rather than duplicates.`,
	Args: cobra.ExactArgs(1),
	RunE: runPaperImport,
}

func runPaperImport(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	var papers []paper.Paper
	switch paperImportFormat {
	case "jsonl":
		var err error
		papers, err = storage.ReadPapers(args[0])
		if err != nil {
			exitWithError(ExitDataError, "reading %s: %v", args[0], err)
		}
	case "paperpile":
		data, err := os.ReadFile(args[0])
		if err != nil {
			exitWithError(ExitError, "reading %s: %v", args[0], err)
		}
		var errs []error
		papers, errs = importer.ParsePaperpile(data, e.project)
		for _, err := range errs {
			e.logger.Warn().Err(err).Msg("skipping Paperpile entry")
		}
		if len(papers) == 0 && len(errs) > 0 {
			exitWithError(ExitDataError, "no importable entries in %s: %v", args[0], errs[0])
		}
	default:
		exitWithError(ExitDataError, "unknown format %q (want jsonl or paperpile)", paperImportFormat)
	}

	added, updated, err := e.db.ImportPapers(context.Background(), e.project, papers)
	if err != nil {
		exitWithError(ExitError, "importing papers: %v", err)
	}

	if humanOutput {
		outputHuman("Imported %d paper(s): %d added, %d updated\n", added+updated, added, updated)
	} else {
		outputJSON(map[string]int{"added": added, "updated": updated})
	}
	return nil
}

var paperExportCmd = &cobra.Command{
	Use:   "export <papers.jsonl>",
	Short: "Export the project's papers to a JSONL snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperExport,
}

func runPaperExport(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	papers, err := e.db.ListPapers(context.Background(), e.project)
	if err != nil {
		exitWithError(ExitError, "listing papers: %v", err)
	}
	if err := storage.WritePapers(args[0], papers); err != nil {
		exitWithError(ExitError, "writing %s: %v", args[0], err)
	}

	if humanOutput {
		outputHuman("Exported %d paper(s) to %s\n", len(papers), args[0])
	} else {
		outputJSON(StatusResponse{Status: "exported", Path: args[0], Count: len(papers)})
	}
	return nil
}

// filterByAuthor keeps papers whose authors match every query. Never
// returns nil.
func filterByAuthor(papers []paper.Paper, terms []string) []paper.Paper {
	queries := make([]author.Query, 0, len(terms))
	for _, t := range terms {
		if q := author.ParseQuery(t); q.Last != "" {
			queries = append(queries, q)
		}
	}

	out := make([]paper.Paper, 0, len(papers))
	for _, p := range papers {
		if author.MatchesAuthorString(queries, p.Author) {
			out = append(out, p)
		}
	}
	return out
}

// mustGetPaper fetches a paper from the current project, exits if missing.
func mustGetPaper(e *env, id string) *paper.Paper {
	p, err := e.db.GetPaper(context.Background(), e.project, id)
	if err != nil {
		exitWithError(ExitError, "getting paper: %v", err)
	}
	if p == nil {
		exitWithError(ExitNotFound, "paper not found: %s", id)
	}
	return p
}
