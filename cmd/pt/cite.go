package main

import (
	"context"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/papertrail/papertrail/internal/clipboard"
	"github.com/papertrail/papertrail/internal/export"
	"github.com/papertrail/papertrail/internal/storage"
	"github.com/spf13/cobra"
)

var citeCopy bool

func init() {
	rootCmd.AddCommand(citeCmd, bibCmd)
	citeCmd.Flags().BoolVarP(&citeCopy, "copy", "c", false, `Copy \cite{key} to the clipboard`)
	bibCmd.AddCommand(bibListCmd, bibExportCmd)
}

var citeCmd = &cobra.Command{
	Use:   "cite <paper-id>",
	Short: "Derive a citation key for a paper and store its BibTeX entry",
	Long: `Derive the paper's citation key (first author's surname plus year) and
store its BibTeX entry in the project bibliography. Citing a paper again
overwrites its entry under the same key.`,
	Args: cobra.ExactArgs(1),
	RunE: runCite,
}

// CiteResponse is the JSON output of pt cite.
type CiteResponse struct {
	Key    string `json:"key"`
	Entry  string `json:"entry"`
	Copied bool   `json:"copied,omitempty"`
}

func runCite(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	p := mustGetPaper(e, args[0])
	key := export.DeriveKey(*p)
	entry := export.BuildEntry(key, *p)

	err := e.db.UpsertBibEntry(context.Background(), storage.BibEntry{
		ProjectID: e.project,
		Key:       key,
		PaperID:   p.ID,
		Entry:     entry,
	})
	if err != nil {
		exitWithError(ExitError, "storing bibliography entry: %v", err)
	}

	resp := CiteResponse{Key: key, Entry: entry}
	if citeCopy {
		if err := clipboard.New().Copy(context.Background(), `\cite{`+key+`}`); err != nil {
			e.logger.Warn().Err(err).Msg("copying citation")
		} else {
			resp.Copied = true
		}
	}

	if humanOutput {
		outputHuman("\\cite{%s}\n\n%s", key, entry)
		if resp.Copied {
			outputHuman("\nCopied to clipboard\n")
		}
	} else {
		outputJSON(resp)
	}
	return nil
}

var bibCmd = &cobra.Command{
	Use:   "bib",
	Short: "Manage the project bibliography",
}

var bibListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bibliography entries",
	Args:  cobra.NoArgs,
	RunE:  runBibList,
}

func runBibList(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	entries, err := e.db.ListBibEntries(context.Background(), e.project)
	if err != nil {
		exitWithError(ExitError, "listing bibliography: %v", err)
	}
	if entries == nil {
		entries = []storage.BibEntry{}
	}

	if !humanOutput {
		outputJSON(entries)
		return nil
	}
	if len(entries) == 0 {
		outputHuman("Bibliography is empty. Use 'pt cite <paper-id>'.\n")
		return nil
	}
	for _, b := range entries {
		outputHuman("  %-24s updated %s\n", b.Key, humanize.Time(b.UpdatedAt))
	}
	return nil
}

var bibExportCmd = &cobra.Command{
	Use:   "export [file.bib]",
	Short: "Write the bibliography as BibTeX",
	Long: `Write the project bibliography as BibTeX to stdout, or append it to a
.bib file. When appending, keys already present in the file are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBibExport,
}

func runBibExport(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()

	entries, err := e.db.ListBibEntries(context.Background(), e.project)
	if err != nil {
		exitWithError(ExitError, "listing bibliography: %v", err)
	}

	if len(args) == 0 {
		texts := make([]string, len(entries))
		for i, b := range entries {
			texts[i] = b.Entry
		}
		os.Stdout.WriteString(export.JoinEntries(texts))
		return nil
	}

	path := args[0]
	existing, err := export.ParseBibFile(path)
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", path, err)
	}

	var texts, skipped []string
	for _, b := range entries {
		if existing.Has(b.Key) {
			skipped = append(skipped, b.Key)
			continue
		}
		texts = append(texts, b.Entry)
	}
	if len(texts) > 0 {
		if err := export.AppendToBibFile(path, export.JoinEntries(texts)); err != nil {
			exitWithError(ExitError, "writing %s: %v", path, err)
		}
	}

	if humanOutput {
		outputHuman("Appended %d entries to %s\n", len(texts), path)
		if len(skipped) > 0 {
			outputHuman("Skipped existing keys: %s\n", strings.Join(skipped, ", "))
		}
	} else {
		outputJSON(struct {
			Path     string   `json:"path"`
			Appended int      `json:"appended"`
			Skipped  []string `json:"skipped"`
		}{path, len(texts), nonNil(skipped)})
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
