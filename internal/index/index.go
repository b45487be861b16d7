package index

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"docchat/internal/model"
	"docchat/internal/storage"
)

// ErrNotFound reports that a session has no persisted index. Callers use it
// as a typed state check instead of inferring absence from raw I/O errors.
var ErrNotFound = errors.New("index not found")

// Persisted artifact names, co-located with the session's uploaded files and
// hidden from file listings by their reserved suffixes.
const (
	metaFile    = "store" + storage.MetaSuffix
	vectorsFile = "vectors" + storage.VectorsSuffix
)

// Index maps chunk embeddings to chunk content and provenance for one
// session. Retrieval is brute-force cosine similarity; sessions are small
// enough that nothing fancier pays for itself.
type Index struct {
	chunks  []model.Chunk
	vectors [][]float32
}

type Hit struct {
	Chunk model.Chunk
	Score float32
}

// Build pairs chunks with their embeddings. Vector count and dimensions must
// line up.
func Build(chunks []model.Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunk count %d does not match vector count %d", len(chunks), len(vectors))
	}
	if len(vectors) > 0 {
		dim := len(vectors[0])
		for _, v := range vectors {
			if len(v) != dim {
				return nil, errors.New("vector dimension mismatch")
			}
		}
	}
	return &Index{chunks: chunks, vectors: vectors}, nil
}

func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Search returns the k chunks most similar to the query vector, best first.
func (ix *Index) Search(query []float32, k int) []Hit {
	if k <= 0 || len(ix.chunks) == 0 {
		return nil
	}

	hits := make([]Hit, len(ix.chunks))
	for i := range ix.chunks {
		hits[i] = Hit{
			Chunk: ix.chunks[i],
			Score: cosineSimilarity(query, ix.vectors[i]),
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}

// Save persists the index into the session's storage location, overwriting
// any previous index there.
func (ix *Index) Save(ctx context.Context, backend storage.Backend, sessionID string) error {
	meta, err := json.Marshal(ix.chunks)
	if err != nil {
		return fmt.Errorf("marshal index metadata failed: %w", err)
	}

	var vecBuf bytes.Buffer
	if err := gob.NewEncoder(&vecBuf).Encode(ix.vectors); err != nil {
		return fmt.Errorf("encode index vectors failed: %w", err)
	}

	if err := backend.WriteFile(ctx, sessionID, metaFile, bytes.NewReader(meta), int64(len(meta))); err != nil {
		return fmt.Errorf("write index metadata failed: %w", err)
	}
	if err := backend.WriteFile(ctx, sessionID, vectorsFile, bytes.NewReader(vecBuf.Bytes()), int64(vecBuf.Len())); err != nil {
		return fmt.Errorf("write index vectors failed: %w", err)
	}
	return nil
}

// Load reads the session's persisted index. Returns ErrNotFound when either
// artifact is absent.
func Load(ctx context.Context, backend storage.Backend, sessionID string) (*Index, error) {
	meta, err := readAll(ctx, backend, sessionID, metaFile)
	if err != nil {
		return nil, err
	}
	vecRaw, err := readAll(ctx, backend, sessionID, vectorsFile)
	if err != nil {
		return nil, err
	}

	var chunks []model.Chunk
	if err := json.Unmarshal(meta, &chunks); err != nil {
		return nil, fmt.Errorf("unmarshal index metadata failed: %w", err)
	}
	var vectors [][]float32
	if err := gob.NewDecoder(bytes.NewReader(vecRaw)).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decode index vectors failed: %w", err)
	}
	if len(chunks) != len(vectors) {
		return nil, errors.New("index metadata and vectors out of sync")
	}
	return &Index{chunks: chunks, vectors: vectors}, nil
}

func readAll(ctx context.Context, backend storage.Backend, sessionID, name string) ([]byte, error) {
	rc, err := backend.ReadFile(ctx, sessionID, name)
	if errors.Is(err, storage.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read index artifact %s failed: %w", name, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read index artifact %s failed: %w", name, err)
	}
	return b, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
