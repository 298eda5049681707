// Package author parses free-form author strings and matches author
// search queries against them.
package author

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Name is one parsed author name.
type Name struct {
	First string `json:"first,omitempty"`
	Last  string `json:"last"`
}

var groupSep = regexp.MustCompile(`(?i)\s+and\s+|;|&`)

// ParseNames splits a paper's author string into names. It understands
// "Last, First" and "First Last" forms separated by " and ", ";" or "&",
// and plain comma-separated "First Last" lists.
func ParseNames(s string) []Name {
	var names []Name
	for _, group := range groupSep.Split(s, -1) {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}

		parts := strings.Split(group, ",")
		if len(parts) == 2 && isGivenNames(parts[1]) && !startsWithInitial(parts[0]) {
			last := strings.TrimSpace(parts[0])
			if last != "" {
				names = append(names, Name{First: strings.TrimSpace(parts[1]), Last: last})
				continue
			}
		}
		for _, part := range parts {
			if n, ok := parseFirstLast(part); ok {
				names = append(names, n)
			}
		}
	}
	return names
}

// isGivenNames reports whether s looks like the given-name half of
// "Last, First": at most one full word plus initials.
func isGivenNames(s string) bool {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return false
	}
	words := 0
	for _, f := range fields {
		if !isInitial(f) {
			words++
		}
	}
	return words <= 1
}

func startsWithInitial(s string) bool {
	fields := strings.Fields(s)
	return len(fields) > 1 && isInitial(fields[0])
}

// isInitial accepts "J", "J." and hyphenated "J.-P.".
func isInitial(s string) bool {
	letters := strings.Map(func(r rune) rune {
		if r == '.' || r == '-' {
			return -1
		}
		return r
	}, s)
	n := utf8.RuneCountInString(letters)
	return n == 1 || (n == 2 && strings.Contains(s, "."))
}

// parseFirstLast treats the final word as the last name.
func parseFirstLast(s string) (Name, bool) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 0:
		return Name{}, false
	case 1:
		return Name{Last: fields[0]}, true
	default:
		return Name{
			First: strings.Join(fields[:len(fields)-1], " "),
			Last:  fields[len(fields)-1],
		}, true
	}
}
