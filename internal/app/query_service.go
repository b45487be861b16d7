package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docchat/internal/ai"
	"docchat/internal/index"
	"docchat/internal/model"
	"docchat/internal/storage"
)

const defaultTopK = 5

// Generator produces the final answer text from an assembled prompt.
type Generator interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// QueryService answers a prompt against a session's persisted index:
// retrieve top-k chunks, assemble a grounded prompt, generate, cite.
type QueryService struct {
	backend   storage.Backend
	embedder  Embedder
	generator Generator
	topK      int
}

func NewQueryService(backend storage.Backend, embedder Embedder, generator Generator, topK int) *QueryService {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &QueryService{
		backend:   backend,
		embedder:  embedder,
		generator: generator,
		topK:      topK,
	}
}

type AskResult struct {
	GeneratedText string           `json:"generated_text"`
	Citations     []model.Citation `json:"citations"`
}

// Ask runs one retrieval-augmented query. A session whose files were never
// processed fails with ErrNoIndex rather than answering from nothing.
//
// Citations reflect the retrieved context in retrieval order, not which
// bracket markers the model actually used in its answer.
func (s *QueryService) Ask(ctx context.Context, sessionID, prompt string) (*AskResult, error) {
	if !isValidSessionName(sessionID) {
		return nil, ErrInvalidInput
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrInvalidInput
	}

	ix, err := index.Load(ctx, s.backend, sessionID)
	if errors.Is(err, index.ErrNotFound) {
		return nil, ErrNoIndex
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecution, err)
	}

	queryVec, err := s.embedder.Embed(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecution, err)
	}
	hits := ix.Search(queryVec, s.topK)

	answer, err := s.generator.Complete(ctx, assemblePrompt(hits, prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecution, err)
	}

	citations := make([]model.Citation, 0, len(hits))
	for _, hit := range hits {
		citations = append(citations, hit.Chunk.Citation())
	}

	return &AskResult{
		GeneratedText: strings.TrimSpace(answer),
		Citations:     citations,
	}, nil
}

// assemblePrompt builds the grounded generation prompt: retrieved chunk
// texts separated by blank lines, the literal question, and fixed citation
// instructions.
func assemblePrompt(hits []index.Hit, question string) []ai.ChatMessage {
	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		texts = append(texts, hit.Chunk.Content)
	}
	contextBlock := strings.Join(texts, "\n\n")

	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(contextBlock)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("1. Answer the question based on the provided context.\n")
	b.WriteString("2. If you use specific information from the context, indicate the source using [1], [2], etc., corresponding to the order of the sources in the context.\n")
	b.WriteString("3. At the end, provide references for each [1], [2] marker with the document name and page number.\n")
	b.WriteString("4. If you're unsure or the information is not in the context, say so.\n")
	b.WriteString("\nAnswer:")

	return []ai.ChatMessage{
		{Role: "system", Content: "You are a helpful assistant. Answer using only the provided context. Do not make up facts."},
		{Role: "user", Content: b.String()},
	}
}
