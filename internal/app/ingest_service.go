package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"docchat/internal/docparse"
	"docchat/internal/index"
	"docchat/internal/model"
	"docchat/internal/storage"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	embeddingBatchSize  = 10 // many providers limit batch size
)

// Embedder turns text into vectors. The app layer never sees provider
// details.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// IngestService rebuilds a session's vector index from its current file set:
// load, split, embed, persist, strictly in that order. Nothing is written
// until every prior stage has succeeded for the whole set, so a failed run
// leaves any previous index untouched.
type IngestService struct {
	backend      storage.Backend
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
}

func NewIngestService(backend storage.Backend, embedder Embedder, chunkSize, chunkOverlap int) *IngestService {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &IngestService{
		backend:      backend,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Process runs the full pipeline for one session. Re-running fully rebuilds
// the index from the current file set; there is no incremental update.
func (s *IngestService) Process(ctx context.Context, sessionID string) error {
	if !isValidSessionName(sessionID) {
		return ErrInvalidInput
	}

	dir, cleanup, err := s.backend.Materialize(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer cleanup()

	chunks, err := s.loadAndSplit(dir)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return ErrNoContent
	}

	vectors, err := s.embedAll(ctx, chunks)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	ix, err := index.Build(chunks, vectors)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if err := ix.Save(ctx, s.backend, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	return nil
}

func (s *IngestService) loadAndSplit(dir string) ([]model.Chunk, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read session files failed", ErrLoad)
	}
	// Deterministic chunk order regardless of backend listing order.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var chunks []model.Chunk
	for _, entry := range entries {
		if entry.IsDir() || storage.IsReserved(entry.Name()) {
			continue
		}
		pages, ok, err := docparse.Parse(filepath.Join(dir, entry.Name()))
		if err != nil {
			// One corrupt document aborts the whole run; no partial index.
			return nil, fmt.Errorf("%w: %s: %v", ErrLoad, entry.Name(), err)
		}
		if !ok {
			continue
		}
		chunks = append(chunks, splitPages(entry.Name(), pages, s.chunkSize, s.chunkOverlap)...)
	}
	return chunks, nil
}

func (s *IngestService) embedAll(ctx context.Context, chunks []model.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	var vectors [][]float32
	for i := 0; i < len(texts); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedder.EmbedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}
	return vectors, nil
}

// splitPages partitions each page's text into overlapping rune chunks,
// carrying source filename and page number on every chunk. overlap < size is
// required so the window always advances.
func splitPages(source string, pages []docparse.Page, size, overlap int) []model.Chunk {
	var chunks []model.Chunk
	for _, page := range pages {
		for _, content := range splitText(page.Text, size, overlap) {
			chunks = append(chunks, model.Chunk{
				ID:      uuid.NewString(),
				Content: content,
				Source:  source,
				Page:    page.Number,
			})
		}
	}
	return chunks
}

func splitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap >= size {
		overlap = size / 2
	}

	var parts []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		part := string(runes[i:end])
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
		i += size - overlap
		if i >= len(runes) {
			break
		}
	}
	return parts
}
