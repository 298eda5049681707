// Package ingest turns uploaded PDF files into papers using the metadata
// embedded in the document's Info dictionary.
package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/papertrail/papertrail/internal/paper"
)

// Metadata is what a PDF says about itself.
type Metadata struct {
	Title   string `json:"title"`
	Author  string `json:"author,omitempty"`
	Subject string `json:"subject,omitempty"`
}

var pdfExt = regexp.MustCompile(`(?i)\.pdf$`)

// TitleFromFileName derives a fallback title from a file name.
func TitleFromFileName(name string) string {
	return strings.TrimSpace(pdfExt.ReplaceAllString(filepath.Base(name), ""))
}

// ExtractMetadata reads the Title, Author and Subject entries of a PDF's
// Info dictionary. The title falls back to the file name when the
// document has none.
func ExtractMetadata(filePath string) (Metadata, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return Metadata{}, fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer f.Close()

	return fromInfo(r.Trailer().Key("Info"), filePath), nil
}

func fromInfo(info pdf.Value, filePath string) Metadata {
	m := Metadata{
		Title:   infoText(info, "Title"),
		Author:  infoText(info, "Author"),
		Subject: infoText(info, "Subject"),
	}
	if m.Title == "" {
		m.Title = TitleFromFileName(filePath)
	}
	return m
}

func infoText(info pdf.Value, key string) string {
	if info.IsNull() {
		return ""
	}
	v := info.Key(key)
	if v.Kind() != pdf.String {
		return ""
	}
	return strings.TrimSpace(v.Text())
}

// NewPaper builds a paper for projectID from a PDF file's metadata.
func NewPaper(projectID, filePath string, m Metadata) paper.Paper {
	return paper.Paper{
		ProjectID: projectID,
		Title:     m.Title,
		Author:    m.Author,
		Subject:   m.Subject,
		FileRef:   filePath,
	}
}
