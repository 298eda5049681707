package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/papertrail/papertrail/internal/ingest"
	"github.com/papertrail/papertrail/internal/project"
	"github.com/papertrail/papertrail/internal/storage"
	"github.com/spf13/cobra"
)

var (
	projectTitle string
	projectDesc  string
	projectID    string
	projectWatch bool
)

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectShowCmd)

	projectCreateCmd.Flags().StringVar(&projectTitle, "title", "", "Project title (required)")
	projectCreateCmd.Flags().StringVar(&projectDesc, "desc", "", "Short description")
	projectCreateCmd.Flags().StringVar(&projectID, "id", "", "Project ID (default: derived from the title)")
	projectCreateCmd.MarkFlagRequired("title")

	for _, c := range []*cobra.Command{projectCmd, projectListCmd} {
		c.Flags().BoolVar(&projectWatch, "watch", false, "Keep running and print the list again whenever it changes")
	}
}

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects"},
	Short:   "Create and list projects",
	Long: `Create and list projects. Without a subcommand, lists projects newest first.

A project is also created implicitly, titled by its ID, the first time a
paper is added to it.`,
	Args: cobra.NoArgs,
	RunE: runProjectList,
}

var projectCreateCmd = &cobra.Command{
	Use:   "create --title <title> [file.pdf ...]",
	Short: "Create a project, optionally adding PDFs to it",
	Long: `Create a project and add each given PDF to it as a paper, reading the
title, author and subject embedded in the file.

The ID is derived from the title unless --id is given. Giving the --id of
an existing project updates its title and description instead.

Examples:
  pt project create --title "CHI 2026 Thesis" --desc "Chapter 3 sources" a.pdf b.pdf
  pt project create --id thesis --title "Thesis"`,
	RunE: runProjectCreate,
}

// ProjectSummary is a project with its paper count.
type ProjectSummary struct {
	project.Project
	Papers int `json:"papers"`
}

// ProjectCreateResponse is the JSON output of pt project create.
type ProjectCreateResponse struct {
	Status   string         `json:"status"`
	Project  ProjectSummary `json:"project"`
	PaperIDs []string       `json:"paper_ids"`
	Failed   []string       `json:"failed,omitempty"`
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	db := mustOpenDatabase(cfg, logger)
	defer db.Close()

	ctx := context.Background()
	id, existing := mustResolveProjectID(ctx, db, projectID, projectTitle)

	p := project.Project{ID: id, Title: strings.TrimSpace(projectTitle), Description: strings.TrimSpace(projectDesc)}
	if err := db.UpsertProject(ctx, p); err != nil {
		if errors.Is(err, project.ErrInvalidID) || errors.Is(err, project.ErrEmptyID) || errors.Is(err, project.ErrEmptyTitle) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "creating project: %v", err)
	}

	resp := ProjectCreateResponse{Status: "created", PaperIDs: []string{}}
	if existing {
		resp.Status = "updated"
	}
	for _, path := range args {
		meta, err := ingest.ExtractMetadata(path)
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("reading PDF metadata; using file name")
			meta = ingest.Metadata{Title: ingest.TitleFromFileName(path)}
		}
		paperID, err := db.AddPaper(ctx, ingest.NewPaper(id, path, meta))
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("adding paper failed")
			resp.Failed = append(resp.Failed, path)
			continue
		}
		resp.PaperIDs = append(resp.PaperIDs, paperID)
	}

	resp.Project = mustProjectSummary(ctx, db, id)

	if humanOutput {
		verb := "Created"
		if existing {
			verb = "Updated"
		}
		outputHuman("%s project %s: %s\n", verb, id, resp.Project.Title)
		outputHuman("  %d PDF(s) added", len(resp.PaperIDs))
		if len(resp.Failed) > 0 {
			outputHuman(", %d failed", len(resp.Failed))
		}
		outputHuman("\n")
	} else {
		outputJSON(resp)
	}
	if len(resp.Failed) > 0 {
		db.Close()
		os.Exit(ExitDataError)
	}
	return nil
}

// mustResolveProjectID picks the ID for a new project and reports whether
// it already exists. An explicit ID is used as given. A derived one gets a
// short random suffix when the slug is taken, or is random when the title
// has no usable characters.
func mustResolveProjectID(ctx context.Context, db *storage.DB, explicit, title string) (string, bool) {
	if explicit != "" {
		p, err := db.GetProject(ctx, explicit)
		if err != nil {
			exitWithError(ExitError, "looking up project: %v", err)
		}
		return explicit, p != nil
	}

	id := project.Slugify(title)
	if id == "" {
		return uuid.NewString(), false
	}
	p, err := db.GetProject(ctx, id)
	if err != nil {
		exitWithError(ExitError, "looking up project: %v", err)
	}
	if p != nil {
		id += "-" + uuid.NewString()[:8]
	}
	return id, false
}

func mustProjectSummary(ctx context.Context, db *storage.DB, id string) ProjectSummary {
	p, err := db.GetProject(ctx, id)
	if err != nil {
		exitWithError(ExitError, "getting project: %v", err)
	}
	if p == nil {
		exitWithError(ExitNotFound, "project not found: %s", id)
	}
	return summarize(ctx, db, *p)
}

func summarize(ctx context.Context, db *storage.DB, p project.Project) ProjectSummary {
	n, err := db.CountPapers(ctx, p.ID)
	if err != nil {
		exitWithError(ExitError, "counting papers: %v", err)
	}
	return ProjectSummary{Project: p, Papers: n}
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects, newest first",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

func runProjectList(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	db := mustOpenDatabase(cfg, logger)
	defer db.Close()

	if !projectWatch {
		ctx := context.Background()
		projects, err := db.ListProjects(ctx)
		if err != nil {
			exitWithError(ExitError, "listing projects: %v", err)
		}
		printProjects(ctx, db, projects)
		return nil
	}

	db.SetPollInterval(2 * time.Second)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	for projects := range db.WatchProjects(ctx) {
		printProjects(context.Background(), db, projects)
		if humanOutput {
			outputHuman("\n")
		}
	}
	return nil
}

func printProjects(ctx context.Context, db *storage.DB, projects []project.Project) {
	summaries := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, summarize(ctx, db, p))
	}

	if !humanOutput {
		outputJSON(summaries)
		return
	}
	if len(summaries) == 0 {
		outputHuman("No projects yet\n")
		return
	}
	for i, s := range summaries {
		printProjectLine(i, s)
	}
}

func printProjectLine(i int, s ProjectSummary) {
	outputHuman("%3d. %-24s %s\n", i+1, s.ID, truncateString(s.Title, ListTitleMaxLen))
	if s.Description != "" {
		outputHuman("     %s\n", truncateString(s.Description, ListTitleMaxLen+20))
	}
	outputHuman("     %d paper(s) · %d PDF(s) · created %s\n", s.Papers, s.PDFCount, humanize.Time(s.CreatedAt))
}

var projectShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)
	db := mustOpenDatabase(cfg, logger)
	defer db.Close()

	s := mustProjectSummary(context.Background(), db, args[0])
	if !humanOutput {
		outputJSON(s)
		return nil
	}
	outputHuman("%s\n", s.Title)
	outputHuman("ID:      %s\n", s.ID)
	if s.Description != "" {
		outputHuman("\n%s\n\n", wrapText(s.Description, TextWrapWidth, ""))
	}
	outputHuman("Papers:  %d (%d with PDF)\n", s.Papers, s.PDFCount)
	outputHuman("Created: %s\n", s.CreatedAt.Local().Format(time.RFC1123))
	outputHuman("Updated: %s\n", humanize.Time(s.UpdatedAt))
	return nil
}
