package pdfextract

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ExtractPages opens the PDF at path and extracts plain text page by page, so
// chunk provenance can carry 1-based page numbers. Pages without extractable
// text come back as empty strings at their original position.
func ExtractPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf page %d failed: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
