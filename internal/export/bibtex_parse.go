package export

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

var entryStartRegex = regexp.MustCompile(`@\w+\{([^,]+),`)

// BibIndex records the citation keys already present in a .bib file.
type BibIndex struct {
	Keys map[string]bool
}

// NewBibIndex creates an empty index.
func NewBibIndex() *BibIndex {
	return &BibIndex{Keys: make(map[string]bool)}
}

// Has reports whether key is already present.
func (idx *BibIndex) Has(key string) bool {
	return idx.Keys[key]
}

// ParseBibFile indexes the entry keys of an existing .bib file.
// A missing file yields an empty index.
func ParseBibFile(path string) (*BibIndex, error) {
	idx := NewBibIndex()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if m := entryStartRegex.FindStringSubmatch(scanner.Text()); len(m) > 1 {
			idx.Keys[strings.TrimSpace(m[1])] = true
		}
	}
	return idx, scanner.Err()
}

// AppendToBibFile appends BibTeX content to a file, creating it if needed.
func AppendToBibFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	// Ensure we start on a new line
	_, err = file.WriteString("\n" + content)
	return err
}
