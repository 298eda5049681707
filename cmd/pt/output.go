package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/papertrail/papertrail/internal/paper"
)

// Constants for output formatting.
const (
	DefaultListLimit = 50 // Default limit for search/list commands

	ListTitleMaxLen   = 60 // Used in list command output
	DetailTitleMaxLen = 70 // Used in detail views
	TextWrapWidth     = 68 // Wrap width for abstracts and entries
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
	Path   string `json:"path,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// printPaperLine prints a one-line paper summary.
func printPaperLine(i int, p paper.Paper) {
	outputHuman("%3d. %s  %s\n", i+1, shortID(p.ID), truncateString(p.DisplayTitle(), ListTitleMaxLen))
	meta := []string{}
	if p.Author != "" {
		meta = append(meta, truncateString(p.Author, 40))
	}
	if p.Year > 0 {
		meta = append(meta, fmt.Sprint(p.Year))
	}
	meta = append(meta, "added "+humanize.Time(p.CreatedAt))
	outputHuman("     %s\n", strings.Join(meta, " · "))
}

// printPaperDetail prints a paper in full.
func printPaperDetail(p paper.Paper) {
	outputHuman("%s\n", truncateString(p.DisplayTitle(), DetailTitleMaxLen))
	outputHuman("  ID:       %s\n", p.ID)
	if p.Author != "" {
		outputHuman("  Authors:  %s\n", p.Author)
	}
	if p.Year > 0 {
		outputHuman("  Year:     %d\n", p.Year)
	}
	if p.Venue != "" {
		outputHuman("  Venue:    %s\n", p.Venue)
	}
	if p.FileRef != "" {
		outputHuman("  File:     %s\n", p.FileRef)
	}
	outputHuman("  Version:  %d (updated %s)\n", p.Version, humanize.Time(p.UpdatedAt))
	if p.Abstract != "" {
		outputHuman("\n  %s\n", wrapText(p.Abstract, TextWrapWidth, "  "))
	}
}

// shortID abbreviates generated UUIDs for display.
func shortID(id string) string {
	if len(id) == 36 && strings.Count(id, "-") == 4 {
		return id[:8]
	}
	return id
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	var currentLine strings.Builder

	for _, word := range strings.Fields(text) {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n"+indent)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// dirOf returns the directory of path, or "." for bare file names.
func dirOf(path string) string {
	return filepath.Dir(path)
}
