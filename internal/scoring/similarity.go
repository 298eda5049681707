package scoring

import (
	"context"

	"github.com/papertrail/papertrail/internal/paper"
	"github.com/papertrail/papertrail/internal/similarity"
)

// SimilarityResult is the tagged outcome of a similarity call.
type SimilarityResult struct {
	Records []similarity.Record
	Err     error // nil on success
}

// OK reports whether the service answered successfully.
func (r SimilarityResult) OK() bool {
	return r.Err == nil
}

type similarityRequest struct {
	ProjectID string            `json:"project_id"`
	Papers    []paper.WirePaper `json:"papers"`
}

type similarityResponse struct {
	PaperSimilarities []similarity.Record `json:"paper_similarities"`
}

// ComputeSimilarities asks the service for all-pairs similarity records for
// the given papers. Records are returned in service order.
//
// Failures are logged and returned as a result with Err set and no records.
// An empty paper list makes no request.
func (c *Client) ComputeSimilarities(ctx context.Context, projectID string, papers []paper.Paper) SimilarityResult {
	if len(papers) == 0 {
		return SimilarityResult{}
	}

	req := similarityRequest{
		ProjectID: projectID,
		Papers:    make([]paper.WirePaper, len(papers)),
	}
	for i := range papers {
		req.Papers[i] = papers[i].WireFields()
	}

	var resp similarityResponse
	if err := c.postJSON(ctx, c.endpoints.Similarity, req, &resp); err != nil {
		c.logger.Error().Err(err).
			Str("project_id", projectID).
			Int("papers", len(papers)).
			Msg("similarity request failed")
		return SimilarityResult{Err: err}
	}

	c.logger.Debug().
		Str("project_id", projectID).
		Int("papers", len(papers)).
		Int("records", len(resp.PaperSimilarities)).
		Msg("similarity computed")
	return SimilarityResult{Records: resp.PaperSimilarities}
}
