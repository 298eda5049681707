// Package project defines the project type that groups a paper library.
package project

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Project is a unit of research work, such as a thesis chapter, that owns
// a set of papers.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PDFCount    int       `json:"pdf_count"` // papers added with an attached file
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IDPattern is the regex pattern for valid project IDs.
// Must start with alphanumeric, followed by alphanumeric, hyphens, or underscores.
var IDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Validation errors.
var (
	ErrEmptyID         = errors.New("id is required")
	ErrInvalidID       = errors.New("id must match pattern: lowercase alphanumeric, hyphens, underscores; must start with alphanumeric")
	ErrEmptyTitle      = errors.New("title is required")
	ErrProjectNotFound = errors.New("project not found")
)

// ValidateForCreate validates a project before it is stored.
func (p *Project) ValidateForCreate() error {
	if err := ValidateID(p.ID); err != nil {
		return err
	}
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// ValidateID validates just the ID field.
func ValidateID(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if !IDPattern.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a project ID from a title: lowercased, with runs of
// other characters collapsed to single hyphens. "CHI 2026: Thesis" gives
// "chi-2026-thesis". The result is empty if the title has no ASCII
// letters or digits.
func Slugify(title string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
}
