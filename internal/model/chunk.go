package model

// Chunk is a bounded slice of a document's text with source provenance.
// Page is 1-based for paged formats and 0 when the source has no pages.
type Chunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source"`
	Page    int    `json:"page,omitempty"`
}

// Citation points a generated answer back at the chunk it was retrieved from.
type Citation struct {
	Source string `json:"source"`
	Page   int    `json:"page,omitempty"`
}

// Citation derives the attribution for a retrieved chunk.
func (c Chunk) Citation() Citation {
	return Citation{Source: c.Source, Page: c.Page}
}
