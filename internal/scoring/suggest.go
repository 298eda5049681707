package scoring

import (
	"context"
	"strings"

	"github.com/papertrail/papertrail/internal/paper"
)

// Candidate is a paper suggested for citation.
type Candidate struct {
	PaperID string  `json:"paper_id"`
	Title   string  `json:"title"`
	Authors string  `json:"authors"`
	Score   float64 `json:"score"`
	Year    *int    `json:"year,omitempty"`
}

// SuggestionResult is the tagged outcome of a suggestion call.
type SuggestionResult struct {
	Candidates []Candidate // Ranked by the service, highest first
	Err        error
}

// OK reports whether the service answered successfully.
func (r SuggestionResult) OK() bool {
	return r.Err == nil
}

type suggestPaper struct {
	PaperID  string `json:"paper_id"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Authors  string `json:"authors"`
}

type suggestRequest struct {
	ProjectID string         `json:"project_id"`
	Sentence  string         `json:"sentence"`
	Papers    []suggestPaper `json:"papers"`
}

type suggestResponse struct {
	SuggestedPapers []Candidate `json:"suggested_papers"`
}

// Suggest ranks papers by relevance to sentence. The service's order is
// kept as-is. A blank sentence or empty paper list makes no request.
func (c *Client) Suggest(ctx context.Context, projectID, sentence string, papers []paper.Paper) SuggestionResult {
	if strings.TrimSpace(sentence) == "" || len(papers) == 0 {
		return SuggestionResult{}
	}

	req := suggestRequest{
		ProjectID: projectID,
		Sentence:  sentence,
		Papers:    make([]suggestPaper, len(papers)),
	}
	for i, p := range papers {
		req.Papers[i] = suggestPaper{
			PaperID:  p.ID,
			Title:    p.Title,
			Abstract: p.Abstract,
			Authors:  p.Author,
		}
	}

	var resp suggestResponse
	if err := c.postJSON(ctx, c.endpoints.Suggestion, req, &resp); err != nil {
		c.logger.Error().Err(err).
			Str("project_id", projectID).
			Msg("suggestion request failed")
		return SuggestionResult{Err: err}
	}
	return SuggestionResult{Candidates: resp.SuggestedPapers}
}
