package main

import (
	"context"
	"io"
	"os"
	"unicode/utf8"

	"github.com/papertrail/papertrail/internal/scoring"
	"github.com/papertrail/papertrail/internal/suggest"
	"github.com/spf13/cobra"
)

var (
	suggestText    string
	suggestCaret   int
	suggestForce   bool
	suggestPolicy  string
	suggestOffline bool
)

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().StringVarP(&suggestText, "text", "t", "", "Draft text (default: read stdin)")
	suggestCmd.Flags().IntVar(&suggestCaret, "caret", -1, "Caret position in characters (default: end of text)")
	suggestCmd.Flags().BoolVarP(&suggestForce, "force", "f", false, "Request suggestions even if the caret is not at a trigger point")
	suggestCmd.Flags().StringVar(&suggestPolicy, "policy", "", "Trigger policy: sentence or citation (default from config)")
	suggestCmd.Flags().BoolVar(&suggestOffline, "offline", false, "Rank papers by keyword overlap locally instead of calling the suggestion service")
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest papers to cite for the clause being written",
	Long: `Suggest papers from the current project for the clause before the caret.

With the sentence policy a request fires when the text before the caret
ends in '.', ',' or ';'. With the citation policy it fires right after
an opening \cite{. Clauses shorter than 10 characters never fire.
Use --force to skip the trigger check. With --offline no service is
contacted; papers are ranked by the share of clause words found in their
title or abstract.

Examples:
  pt suggest -t "Phylogenetic placement scales to millions of reads,"
  echo "as shown by \cite{" | pt suggest --policy citation`,
	Args: cobra.NoArgs,
	RunE: runSuggest,
}

// SuggestResponse is the JSON output of pt suggest.
type SuggestResponse struct {
	Triggered bool `json:"triggered"`
	suggest.Response
	Error string `json:"error,omitempty"`
}

// newSuggestResponse builds the JSON output. Candidates is never null.
func newSuggestResponse(fired bool, resp suggest.Response) SuggestResponse {
	if resp.Candidates == nil {
		resp.Candidates = []scoring.Candidate{}
	}
	out := SuggestResponse{Triggered: fired, Response: resp}
	if resp.Err != nil {
		out.Error = resp.Err.Error()
	}
	return out
}

func runSuggest(cmd *cobra.Command, args []string) error {
	e := mustSetup()
	defer e.close()
	if !suggestOffline {
		mustRequireEndpoint(e.cfg.RequireSuggestion)
	}

	text := suggestText
	if !cmd.Flags().Changed("text") {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitWithError(ExitError, "reading stdin: %v", err)
		}
		text = string(data)
	}
	caret := suggestCaret
	if caret < 0 {
		caret = utf8.RuneCountInString(text)
	}

	name := e.cfg.SuggestPolicy
	if suggestPolicy != "" {
		name = suggestPolicy
	}
	policy, err := suggest.PolicyByName(name)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	ctx := context.Background()
	papers, err := e.db.ListPapers(ctx, e.project)
	if err != nil {
		exitWithError(ExitError, "listing papers: %v", err)
	}

	var suggester suggest.Suggester = suggest.KeywordSuggester{}
	if !suggestOffline {
		suggester = newScoringClient(e.cfg, e.logger)
	}
	trigger := suggest.NewTrigger(policy, suggester, e.logger)
	var (
		resp  suggest.Response
		fired bool
	)
	if suggestForce {
		clause := suggest.ExtractClause(policy.Prepare(suggest.BeforeCaret(text, caret)))
		resp, fired = trigger.Request(ctx, e.project, clause, papers)
	} else {
		resp, fired = trigger.OnChange(ctx, suggest.Change{
			ProjectID: e.project,
			Text:      text,
			Caret:     caret,
			Papers:    papers,
		})
	}

	if !humanOutput {
		outputJSON(newSuggestResponse(fired, resp))
		return nil
	}

	if !fired {
		outputHuman("No suggestion: caret is not at a %s trigger point or the clause is too short\n", policy.Name())
		return nil
	}
	if resp.Err != nil {
		e.logger.Warn().Err(resp.Err).Msg("suggestion request failed")
	}
	outputHuman("Clause: %s\n\n", resp.Clause)
	if len(resp.Candidates) == 0 {
		outputHuman("No suggestions\n")
		return nil
	}
	for i, c := range resp.Candidates {
		outputHuman("%3d. %.3f  %s\n", i+1, c.Score, truncateString(c.Title, ListTitleMaxLen))
		if c.Authors != "" {
			outputHuman("            %s\n", truncateString(c.Authors, ListTitleMaxLen))
		}
	}
	return nil
}
