package author

import "strings"

// Query is a parsed author search term.
type Query struct {
	First string // may be empty for last-name-only queries
	Last  string
}

// ParseQuery parses an author search term:
//
//	"Yu"          last name only
//	"Timothy Yu"  First Last
//	"Yu, Timothy" Last, First
func ParseQuery(input string) Query {
	input = strings.TrimSpace(input)
	if input == "" {
		return Query{}
	}
	if last, first, ok := strings.Cut(input, ","); ok && strings.TrimSpace(last) != "" {
		return Query{First: strings.TrimSpace(first), Last: strings.TrimSpace(last)}
	}
	n, _ := parseFirstLast(input)
	return Query{First: n.First, Last: n.Last}
}

// Matches reports whether the query matches a name. Last names compare
// case-insensitively and exactly, so "Yu" does not match "Yujia". First
// names match by case-insensitive prefix, so "Tim" matches "Timothy C".
func (q Query) Matches(n Name) bool {
	if q.Last == "" || !strings.EqualFold(q.Last, n.Last) {
		return false
	}
	if q.First == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(n.First), strings.ToLower(q.First))
}

// MatchesAny reports whether the query matches any of names.
func (q Query) MatchesAny(names []Name) bool {
	for _, n := range names {
		if q.Matches(n) {
			return true
		}
	}
	return false
}

// MatchesAuthorString parses an author string and requires every query to
// match at least one of its names.
func MatchesAuthorString(queries []Query, author string) bool {
	if len(queries) == 0 {
		return true
	}
	names := ParseNames(author)
	for _, q := range queries {
		if !q.MatchesAny(names) {
			return false
		}
	}
	return true
}
