// Package importer converts reference-manager exports into papers.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/papertrail/papertrail/internal/paper"
)

// Source names the export format recorded in imported paper IDs.
const Source = "paperpile"

// Validation errors for a single export entry.
var (
	ErrMissingTitle = errors.New("missing required field 'title'")
	ErrBadYear      = errors.New("invalid published.year")
)

// looseString accepts a JSON string, number or null.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = looseString(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = looseString(n.String())
		return nil
	}
	return fmt.Errorf("cannot use %s as a string", data)
}

// paperpileEntry is the subset of a Paperpile JSON export entry that maps
// onto a paper.
type paperpileEntry struct {
	ID        string `json:"_id"`
	Citekey   string `json:"citekey"`
	Title     string `json:"title"`
	Abstract  string `json:"abstract"`
	Journal   string `json:"journal"`
	Booktitle string `json:"booktitle"`
	Published struct {
		Year looseString `json:"year"`
	} `json:"published"`
	Author []struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"author"`
	Keywords    looseString `json:"keywords"`
	Attachments []struct {
		ArticlePDF int    `json:"article_pdf"` // 1 = main PDF
		Filename   string `json:"filename"`
	} `json:"attachments"`
}

// ParsePaperpile converts a Paperpile JSON export into papers of the given
// project. Entries that cannot be converted are reported in errs and
// skipped; a malformed document yields a single error and no papers.
//
// Paper IDs are derived from the project and the Paperpile entry ID, so
// importing the same export again updates the papers instead of
// duplicating them.
func ParsePaperpile(data []byte, projectID string) (papers []paper.Paper, errs []error) {
	var entries []paperpileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, []error{fmt.Errorf("parsing Paperpile JSON: %w", err)}
	}

	for i, entry := range entries {
		p, err := entry.toPaper(projectID)
		if err != nil {
			label := entry.Citekey
			if label == "" {
				label = entry.ID
			}
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i+1, label, err))
			continue
		}
		papers = append(papers, p)
	}
	return papers, errs
}

func (e paperpileEntry) toPaper(projectID string) (paper.Paper, error) {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return paper.Paper{}, ErrMissingTitle
	}

	var year int
	if y := string(e.Published.Year); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil || n < 0 {
			return paper.Paper{}, fmt.Errorf("%w: %q", ErrBadYear, y)
		}
		year = n
	}

	venue := e.Journal
	if venue == "" {
		venue = e.Booktitle
	}

	p := paper.Paper{
		ProjectID: projectID,
		Title:     title,
		Author:    joinAuthors(e),
		Abstract:  strings.TrimSpace(e.Abstract),
		Subject:   string(e.Keywords),
		Venue:     strings.TrimSpace(venue),
		Year:      year,
	}
	for _, att := range e.Attachments {
		if att.ArticlePDF == 1 {
			p.FileRef = att.Filename
			break
		}
	}
	if e.ID != "" {
		p.ID = PaperID(projectID, e.ID)
	}
	return p, nil
}

// PaperID returns the stable paper ID for an exported entry.
func PaperID(projectID, entryID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(Source+":"+projectID+"/"+entryID)).String()
}

// joinAuthors renders authors as "Last, First and Last, First".
func joinAuthors(e paperpileEntry) string {
	names := make([]string, 0, len(e.Author))
	for _, a := range e.Author {
		last, first := strings.TrimSpace(a.Last), strings.TrimSpace(a.First)
		switch {
		case last == "" && first == "":
			continue
		case first == "":
			names = append(names, last)
		case last == "":
			names = append(names, first)
		default:
			names = append(names, last+", "+first)
		}
	}
	return strings.Join(names, " and ")
}
