// Package suggest decides when in-progress draft text should ask the
// suggestion service for citations, and what clause to send.
package suggest

import (
	"fmt"
	"strings"
	"unicode"
)

// MinClauseLength is the shortest clause, in characters, worth a request.
const MinClauseLength = 10

// DefaultCiteMarker is the citation-insertion command CitationCommand watches for.
const DefaultCiteMarker = `\cite{`

// Policy decides whether an edit is a trigger point and prepares the text
// the clause is extracted from.
type Policy interface {
	Name() string
	// ShouldTrigger reports whether text ending at the caret is a trigger point.
	ShouldTrigger(before string) bool
	// Prepare returns the text to extract the clause from.
	Prepare(before string) string
}

// SentenceBoundary fires when the last typed character ends a clause.
type SentenceBoundary struct{}

func (SentenceBoundary) Name() string { return "sentence" }

func (SentenceBoundary) ShouldTrigger(before string) bool {
	if before == "" {
		return false
	}
	switch before[len(before)-1] {
	case '.', ',', ';':
		return true
	}
	return false
}

func (SentenceBoundary) Prepare(before string) string { return before }

// CitationCommand fires when the text before the caret ends with Marker,
// i.e. the writer has just opened a citation command.
type CitationCommand struct {
	Marker string
}

func (c CitationCommand) marker() string {
	if c.Marker == "" {
		return DefaultCiteMarker
	}
	return c.Marker
}

func (CitationCommand) Name() string { return "citation" }

func (c CitationCommand) ShouldTrigger(before string) bool {
	if before == "" {
		return false
	}
	// A closed command or finished sentence never triggers.
	switch before[len(before)-1] {
	case '}', '.':
		return false
	}
	return strings.HasSuffix(before, c.marker())
}

func (c CitationCommand) Prepare(before string) string {
	return strings.TrimSuffix(before, c.marker())
}

// PolicyByName returns the policy for a config value: "sentence" (the
// default) or "citation".
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sentence":
		return SentenceBoundary{}, nil
	case "citation":
		return CitationCommand{}, nil
	default:
		return nil, fmt.Errorf("unknown suggestion policy %q (want sentence or citation)", name)
	}
}

// ExtractClause returns the last clause of text: the final non-empty
// segment after splitting on '.', '!' and '?', trimmed of whitespace and
// trailing ',', ';' or ':'.
func ExtractClause(text string) string {
	segments := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	for i := len(segments) - 1; i >= 0; i-- {
		clause := strings.TrimRightFunc(segments[i], func(r rune) bool {
			return unicode.IsSpace(r) || r == ',' || r == ';' || r == ':'
		})
		clause = strings.TrimSpace(clause)
		if clause != "" {
			return clause
		}
	}
	return ""
}

// BeforeCaret returns the text from the start up to caret, counted in
// characters. Out-of-range carets are clamped.
func BeforeCaret(text string, caret int) string {
	runes := []rune(text)
	caret = max(0, min(caret, len(runes)))
	return string(runes[:caret])
}

// Clause applies the policy to an edit and returns the clause to query,
// or false if the edit is not a trigger point or the clause is too short.
func Clause(p Policy, text string, caret int) (string, bool) {
	before := BeforeCaret(text, caret)
	if !p.ShouldTrigger(before) {
		return "", false
	}
	clause := ExtractClause(p.Prepare(before))
	if len([]rune(clause)) < MinClauseLength {
		return "", false
	}
	return clause, true
}
