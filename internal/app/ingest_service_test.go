package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/index"
	"docchat/internal/storage"
)

// fakeEmbedder maps text to letter-frequency vectors. Deterministic, and
// texts sharing vocabulary come out similar, which is enough for retrieval
// assertions.
type fakeEmbedder struct {
	fail bool
}

func letterFrequency(text string) []float32 {
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	return letterFrequency(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vectors = append(vectors, letterFrequency(text))
	}
	return vectors, nil
}

func newIngestFixture(t *testing.T) (*storage.LocalBackend, *IngestService) {
	t.Helper()
	backend, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	return backend, NewIngestService(backend, &fakeEmbedder{}, 100, 20)
}

func putFile(t *testing.T, backend *storage.LocalBackend, sessionID, name, content string) {
	t.Helper()
	err := backend.WriteFile(context.Background(), sessionID, name, bytes.NewReader([]byte(content)), int64(len(content)))
	require.NoError(t, err)
}

func TestIngestService_ProcessBuildsIndex(t *testing.T) {
	backend, svc := newIngestFixture(t)
	ctx := context.Background()

	content := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 10)
	putFile(t, backend, "alpha", "notes.txt", content)

	require.NoError(t, svc.Process(ctx, "alpha"))

	ix, err := index.Load(ctx, backend, "alpha")
	require.NoError(t, err)
	assert.Greater(t, ix.Len(), 1)

	hits := ix.Search(letterFrequency("quick brown fox"), 1)
	require.Len(t, hits, 1)
	assert.Equal(t, "notes.txt", hits[0].Chunk.Source)
	assert.Equal(t, 0, hits[0].Chunk.Page)
	assert.NotEmpty(t, hits[0].Chunk.ID)
}

func TestIngestService_ProcessRejectsInvalidSessionID(t *testing.T) {
	_, svc := newIngestFixture(t)

	for _, id := range []string{"", ".", "..", "a/b"} {
		err := svc.Process(context.Background(), id)
		assert.ErrorIs(t, err, ErrInvalidInput, "id %q", id)
	}
}

func TestIngestService_ProcessEmptySession(t *testing.T) {
	backend, svc := newIngestFixture(t)
	ctx := context.Background()
	require.NoError(t, backend.CreateSession(ctx, "alpha"))

	err := svc.Process(ctx, "alpha")
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestIngestService_ProcessSkipsUnsupportedFiles(t *testing.T) {
	backend, svc := newIngestFixture(t)
	ctx := context.Background()

	putFile(t, backend, "alpha", "image.png", "\x89PNG")

	// Only unsupported files present means nothing to index.
	err := svc.Process(ctx, "alpha")
	assert.ErrorIs(t, err, ErrNoContent)

	putFile(t, backend, "alpha", "notes.txt", "actual text content")
	require.NoError(t, svc.Process(ctx, "alpha"))
}

func TestIngestService_CorruptDocumentAbortsRun(t *testing.T) {
	backend, svc := newIngestFixture(t)
	ctx := context.Background()

	putFile(t, backend, "alpha", "good.txt", "valid content here")
	putFile(t, backend, "alpha", "broken.pdf", "this is not a pdf")

	err := svc.Process(ctx, "alpha")
	assert.ErrorIs(t, err, ErrLoad)

	// The failed run must not have produced an index.
	_, err = index.Load(ctx, backend, "alpha")
	assert.ErrorIs(t, err, index.ErrNotFound)
}

func TestIngestService_EmbeddingFailureLeavesOldIndex(t *testing.T) {
	backend, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	embedder := &fakeEmbedder{}
	svc := NewIngestService(backend, embedder, 100, 20)

	putFile(t, backend, "alpha", "notes.txt", "first generation content")
	require.NoError(t, svc.Process(ctx, "alpha"))

	before, err := index.Load(ctx, backend, "alpha")
	require.NoError(t, err)

	embedder.fail = true
	err = svc.Process(ctx, "alpha")
	assert.ErrorIs(t, err, ErrEmbedding)

	after, err := index.Load(ctx, backend, "alpha")
	require.NoError(t, err)
	assert.Equal(t, before.Len(), after.Len())
}

func TestIngestService_ReprocessReplacesIndex(t *testing.T) {
	backend, svc := newIngestFixture(t)
	ctx := context.Background()

	putFile(t, backend, "alpha", "a.txt", "short")
	require.NoError(t, svc.Process(ctx, "alpha"))

	ix, err := index.Load(ctx, backend, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())

	putFile(t, backend, "alpha", "b.txt", "another short document")
	require.NoError(t, svc.Process(ctx, "alpha"))

	ix, err = index.Load(ctx, backend, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 2, ix.Len())
}

func TestSplitText(t *testing.T) {
	t.Run("short text single chunk", func(t *testing.T) {
		parts := splitText("hello", 100, 20)
		assert.Equal(t, []string{"hello"}, parts)
	})

	t.Run("overlapping windows", func(t *testing.T) {
		text := strings.Repeat("abcdefghij", 10) // 100 runes
		parts := splitText(text, 40, 10)
		require.Len(t, parts, 4)
		for _, part := range parts[:3] {
			assert.Len(t, part, 40)
		}
		// Consecutive chunks share the overlap region.
		assert.Equal(t, parts[0][30:], parts[1][:10])
	})

	t.Run("whitespace only dropped", func(t *testing.T) {
		assert.Empty(t, splitText("   \n\t  ", 100, 20))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, splitText("", 100, 20))
	})

	t.Run("multibyte runes", func(t *testing.T) {
		text := strings.Repeat("日本語テキスト", 5) // 30 runes
		parts := splitText(text, 20, 5)
		require.Len(t, parts, 2)
		assert.Equal(t, 20, len([]rune(parts[0])))
	})
}

func TestNewIngestService_ClampsBadOverlap(t *testing.T) {
	svc := NewIngestService(nil, &fakeEmbedder{}, 100, 100)
	assert.Equal(t, 100, svc.chunkSize)
	assert.Equal(t, 20, svc.chunkOverlap)

	svc = NewIngestService(nil, &fakeEmbedder{}, 0, -1)
	assert.Equal(t, defaultChunkSize, svc.chunkSize)
	assert.Equal(t, defaultChunkSize/5, svc.chunkOverlap)
}
