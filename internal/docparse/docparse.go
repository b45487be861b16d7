package docparse

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"docchat/internal/pkg/pdfextract"
)

// Page is one unit of extracted text. Number is 1-based for paged formats
// and 0 for formats without a page concept.
type Page struct {
	Number int
	Text   string
}

// Parser extracts text pages from a file on the local filesystem.
type Parser func(path string) ([]Page, error)

var parsers = map[string]Parser{
	".txt": parsePlainText,
	".md":  parsePlainText,
	".pdf": parsePDF,
}

// Parse runs the parser registered for the file's extension. ok is false when
// no parser is registered, which callers treat as "skip this file".
func Parse(path string) (pages []Page, ok bool, err error) {
	ext := strings.ToLower(filepath.Ext(path))
	parser, registered := parsers[ext]
	if !registered {
		return nil, false, nil
	}
	pages, err = parser(path)
	if err != nil {
		return nil, true, stripPath(err)
	}
	return pages, true, nil
}

// stripPath rewrites filesystem errors to carry only the base name. Parser
// errors travel up to API responses, which must not leak local paths.
func stripPath(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s %s: %w", pathErr.Op, filepath.Base(pathErr.Path), pathErr.Err)
	}
	return err
}

func parsePlainText(path string) ([]Page, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file failed: %w", err)
	}
	return []Page{{Number: 0, Text: string(b)}}, nil
}

func parsePDF(path string) ([]Page, error) {
	texts, err := pdfextract.ExtractPages(path)
	if err != nil {
		return nil, err
	}
	pages := make([]Page, 0, len(texts))
	for i, text := range texts {
		pages = append(pages, Page{Number: i + 1, Text: text})
	}
	return pages, nil
}
