// Package export derives citation keys for papers and renders them as
// BibTeX entries.
package export

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/papertrail/papertrail/internal/paper"
)

// NoDateMarker stands in for the year in keys of undated papers.
const NoDateMarker = "nd"

// AnonymousKey stands in for the surname in keys of papers without authors.
const AnonymousKey = "anon"

var authorGroupSep = regexp.MustCompile(`(?i)\s+and\s+|;`)

// DeriveKey returns the citation key for a paper: the first author's
// surname, lowercased and stripped to letters and digits, followed by the
// year or NoDateMarker. "Smith, J. and Doe, A." in 2022 gives "smith2022".
func DeriveKey(p paper.Paper) string {
	name := firstAuthorGroup(p.Author)
	if i := strings.Index(name, ","); i >= 0 {
		name = name[:i]
	}

	surname := ""
	if fields := strings.Fields(name); len(fields) > 0 {
		surname = fields[len(fields)-1]
	}

	var b strings.Builder
	for _, r := range strings.ToLower(surname) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	key := b.String()
	if key == "" {
		key = AnonymousKey
	}

	if p.Year > 0 {
		return fmt.Sprintf("%s%d", key, p.Year)
	}
	return key + NoDateMarker
}

func firstAuthorGroup(author string) string {
	return strings.TrimSpace(authorGroupSep.Split(author, 2)[0])
}

// BuildEntry renders a paper as a BibTeX entry under key. Authors, title,
// venue and year are included; absent venue or year fields are omitted.
// The output depends only on its inputs.
func BuildEntry(key string, p paper.Paper) string {
	entryType := determineEntryType(p.Venue)
	var b strings.Builder

	fmt.Fprintf(&b, "@%s{%s,\n", entryType, key)

	if authors := formatAuthors(p.Author); authors != "" {
		fmt.Fprintf(&b, "  author = {%s},\n", escapeLatex(authors))
	}

	fmt.Fprintf(&b, "  title = {%s},\n", escapeLatex(p.DisplayTitle()))

	if p.Venue != "" {
		fieldName := "journal"
		switch entryType {
		case "inproceedings":
			fieldName = "booktitle"
		case "misc":
			fieldName = "howpublished"
		}
		fmt.Fprintf(&b, "  %s = {%s},\n", fieldName, escapeLatex(p.Venue))
	}

	if p.Year > 0 {
		fmt.Fprintf(&b, "  year = {%d},\n", p.Year)
	}

	b.WriteString("}\n")
	return b.String()
}

// JoinEntries concatenates entries separated by blank lines.
func JoinEntries(entries []string) string {
	return strings.Join(entries, "\n")
}

// determineEntryType returns the BibTeX entry type for a venue.
func determineEntryType(venue string) string {
	v := strings.ToLower(venue)

	if v == "" {
		return "misc"
	}

	// Conference proceedings
	if strings.Contains(v, "proceedings") ||
		strings.Contains(v, "conference") ||
		strings.Contains(v, "workshop") ||
		strings.Contains(v, "symposium") {
		return "inproceedings"
	}

	// Journals and preprint servers
	return "article"
}

// formatAuthors normalizes a free-form author string to BibTeX's
// "A and B" form. Commas inside a name ("Smith, J.") are kept.
func formatAuthors(author string) string {
	var names []string
	for _, group := range authorGroupSep.Split(author, -1) {
		if g := strings.Join(strings.Fields(group), " "); g != "" {
			names = append(names, g)
		}
	}
	return strings.Join(names, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
