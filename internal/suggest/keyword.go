package suggest

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/papertrail/papertrail/internal/paper"
	"github.com/papertrail/papertrail/internal/scoring"
)

// DefaultKeywordLimit is how many candidates KeywordSuggester returns.
const DefaultKeywordLimit = 5

// KeywordSuggester ranks papers locally by how many distinct clause words
// also appear in their title or abstract. It needs no scoring service.
type KeywordSuggester struct {
	Limit int
}

// Suggest implements Suggester. Papers sharing no word with the clause are
// left out; ties keep the input order.
func (k KeywordSuggester) Suggest(ctx context.Context, projectID, sentence string, papers []paper.Paper) scoring.SuggestionResult {
	if err := ctx.Err(); err != nil {
		return scoring.SuggestionResult{Err: err}
	}
	limit := k.Limit
	if limit <= 0 {
		limit = DefaultKeywordLimit
	}
	return scoring.SuggestionResult{Candidates: KeywordMatches(sentence, papers, limit)}
}

// KeywordMatches scores each paper by the fraction of the clause's distinct
// words found in its title and abstract, and returns the best limit
// candidates, highest first.
func KeywordMatches(clause string, papers []paper.Paper, limit int) []scoring.Candidate {
	tokens := wordSet(clause)
	if len(tokens) == 0 {
		return []scoring.Candidate{}
	}

	type match struct {
		p       *paper.Paper
		overlap int
	}
	var matches []match
	for i := range papers {
		words := wordSet(papers[i].Title + " " + papers[i].Abstract)
		overlap := 0
		for t := range tokens {
			if words[t] {
				overlap++
			}
		}
		if overlap > 0 {
			matches = append(matches, match{p: &papers[i], overlap: overlap})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].overlap > matches[j].overlap })
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]scoring.Candidate, 0, len(matches))
	for _, m := range matches {
		c := scoring.Candidate{
			PaperID: m.p.ID,
			Title:   m.p.DisplayTitle(),
			Authors: m.p.Author,
			Score:   float64(m.overlap) / float64(len(tokens)),
		}
		if m.p.Year > 0 {
			year := m.p.Year
			c.Year = &year
		}
		out = append(out, c)
	}
	return out
}

func wordSet(s string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
