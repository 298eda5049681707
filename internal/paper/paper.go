// Package paper defines the core domain type for papers in a project library.
package paper

import (
	"errors"
	"strings"
	"time"
)

// Paper is an uploaded paper owned by a project.
type Paper struct {
	// Identity
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`

	// Metadata
	Title      string `json:"title"`
	Author     string `json:"author"`               // Free-form author string, e.g. "Smith, J. and Doe, A."
	Abstract   string `json:"abstract,omitempty"`   // Empty until ingestion resolves
	References string `json:"references,omitempty"` // Raw references section text
	Subject    string `json:"subject,omitempty"`
	Venue      string `json:"venue,omitempty"`
	Year       int    `json:"year,omitempty"` // 0 if unknown

	// Source file (path or URL of the uploaded PDF)
	FileRef string `json:"file_ref,omitempty"`

	// Version increments on every field update.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validation errors.
var (
	ErrEmptyProjectID = errors.New("project_id is required")
	ErrEmptyTitle     = errors.New("title is required")
	ErrEmptyID        = errors.New("id is required")
	ErrNoChanges      = errors.New("update has no fields set")
)

// ValidateForCreate validates a paper before it is added to a store.
func (p *Paper) ValidateForCreate() error {
	if strings.TrimSpace(p.ProjectID) == "" {
		return ErrEmptyProjectID
	}
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// DisplayTitle returns the title, falling back to the file name.
func (p *Paper) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	if p.FileRef != "" {
		return p.FileRef
	}
	return "Untitled paper"
}

// Update carries the fields an ingestion pass may overwrite.
// Nil fields are left untouched.
type Update struct {
	Title      *string `json:"title,omitempty"`
	Author     *string `json:"author,omitempty"`
	Abstract   *string `json:"abstract,omitempty"`
	References *string `json:"references,omitempty"`
	Venue      *string `json:"venue,omitempty"`
	Year       *int    `json:"year,omitempty"`
}

// IsEmpty returns true if no field is set.
func (u Update) IsEmpty() bool {
	return u.Title == nil && u.Author == nil && u.Abstract == nil &&
		u.References == nil && u.Venue == nil && u.Year == nil
}

// Apply overwrites the paper fields set in u and bumps the version.
func (p *Paper) Apply(u Update, now time.Time) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Author != nil {
		p.Author = *u.Author
	}
	if u.Abstract != nil {
		p.Abstract = *u.Abstract
	}
	if u.References != nil {
		p.References = *u.References
	}
	if u.Venue != nil {
		p.Venue = *u.Venue
	}
	if u.Year != nil {
		p.Year = *u.Year
	}
	p.Version++
	p.UpdatedAt = now
}

// WirePaper is the reduced shape sent to the scoring service.
// Text fields are never null on the wire.
type WirePaper struct {
	PaperID    string `json:"paper_id"`
	Title      string `json:"title"`
	Abstract   string `json:"abstract"`
	References string `json:"references"`
	Authors    string `json:"authors"`
}

// WireFields reduces a paper to its scoring payload.
func (p *Paper) WireFields() WirePaper {
	return WirePaper{
		PaperID:    p.ID,
		Title:      p.Title,
		Abstract:   p.Abstract,
		References: p.References,
		Authors:    p.Author,
	}
}

// IDSet returns the paper IDs as a set for O(1) lookup.
func IDSet(papers []Paper) map[string]bool {
	set := make(map[string]bool, len(papers))
	for _, p := range papers {
		set[p.ID] = true
	}
	return set
}
