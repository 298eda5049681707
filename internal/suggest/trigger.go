package suggest

import (
	"context"
	"sync"

	"github.com/papertrail/papertrail/internal/paper"
	"github.com/papertrail/papertrail/internal/scoring"
	"github.com/rs/zerolog"
)

// Suggester ranks papers against a sentence.
type Suggester interface {
	Suggest(ctx context.Context, projectID, sentence string, papers []paper.Paper) scoring.SuggestionResult
}

// Change is one draft-text edit.
type Change struct {
	ProjectID string
	Text      string
	Caret     int // character offset
	Papers    []paper.Paper
}

// Response is the suggestion list delivered for a fired edit.
type Response struct {
	Clause     string              `json:"clause"`
	Candidates []scoring.Candidate `json:"candidates"`
	Err        error               `json:"-"`
}

// Trigger turns draft edits into suggestion requests. Only the response to
// the most recently fired request is delivered; earlier in-flight requests
// are dropped when they complete.
type Trigger struct {
	policy    Policy
	suggester Suggester
	logger    zerolog.Logger

	mu  sync.Mutex
	seq uint64
}

// NewTrigger creates a Trigger. A nil policy means SentenceBoundary.
func NewTrigger(policy Policy, suggester Suggester, logger zerolog.Logger) *Trigger {
	if policy == nil {
		policy = SentenceBoundary{}
	}
	return &Trigger{policy: policy, suggester: suggester, logger: logger}
}

// Policy returns the trigger's policy.
func (t *Trigger) Policy() Policy {
	return t.policy
}

// OnChange handles an edit. It returns false when the edit is not a trigger
// point, the clause is too short, or a newer request superseded this one.
func (t *Trigger) OnChange(ctx context.Context, c Change) (Response, bool) {
	clause, ok := Clause(t.policy, c.Text, c.Caret)
	if !ok {
		return Response{}, false
	}
	return t.Request(ctx, c.ProjectID, clause, c.Papers)
}

// Request asks for suggestions for clause directly, bypassing the policy.
func (t *Trigger) Request(ctx context.Context, projectID, clause string, papers []paper.Paper) (Response, bool) {
	t.mu.Lock()
	t.seq++
	seq := t.seq
	t.mu.Unlock()

	result := t.suggester.Suggest(ctx, projectID, clause, papers)

	t.mu.Lock()
	latest := seq == t.seq
	t.mu.Unlock()
	if !latest {
		t.logger.Debug().Uint64("seq", seq).Msg("dropping superseded suggestions")
		return Response{}, false
	}

	candidates := result.Candidates
	if candidates == nil {
		candidates = []scoring.Candidate{}
	}
	return Response{Clause: clause, Candidates: candidates, Err: result.Err}, true
}
