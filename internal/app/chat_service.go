package app

import (
	"context"
	"strings"
	"time"

	"docchat/internal/model"
)

// AsyncMessagePublisher hands finished chat turns to the persistence queue.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// HistoryCache caches a session's chat history with dirty markers so reads
// right after a write fall through to the database.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID string) error
	MarkDirty(ctx context.Context, sessionID string) error
	IsDirty(ctx context.Context, sessionID string) (bool, error)
}

// MessageStore is the persisted chat history.
type MessageStore interface {
	ListBySessionID(sessionID string, limit int) ([]model.Message, error)
	DeleteBySessionID(sessionID string) error
}

// ChatService runs one chat turn per request: it answers through the query
// engine and records both sides of the exchange asynchronously. Messages are
// an audit trail, not query context; every answer is grounded in the
// session's index alone.
type ChatService struct {
	query        *QueryService
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	messageStore MessageStore
}

func NewChatService(
	query *QueryService,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	messageStore MessageStore,
) *ChatService {
	return &ChatService{
		query:        query,
		publisher:    publisher,
		historyCache: historyCache,
		messageStore: messageStore,
	}
}

type ChatResult struct {
	GeneratedText string           `json:"generated_text"`
	Citations     []model.Citation `json:"citations"`
	Messages      []model.Message  `json:"messages"`
}

// SendMessage answers the prompt against the session's index and enqueues
// the user and assistant messages for persistence.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, content string) (*ChatResult, error) {
	if !isValidSessionName(sessionID) {
		return nil, ErrInvalidInput
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrInvalidInput
	}

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, sessionID)
		_ = s.historyCache.DeleteHistory(ctx, sessionID)
	}

	userMessage := model.Message{
		SessionID: sessionID,
		Role:      "user",
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.publish(ctx, userMessage)

	result, err := s.query.Ask(ctx, sessionID, content)
	if err != nil {
		return nil, err
	}

	assistantMessage := model.Message{
		SessionID: sessionID,
		Role:      "assistant",
		Content:   result.GeneratedText,
		CreatedAt: time.Now(),
	}
	assistantMessage.SetCitations(result.Citations)
	s.publish(ctx, assistantMessage)

	return &ChatResult{
		GeneratedText: result.GeneratedText,
		Citations:     result.Citations,
		Messages:      []model.Message{userMessage, assistantMessage},
	}, nil
}

// GetHistory serves the persisted conversation, through the cache when it is
// clean.
func (s *ChatService) GetHistory(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	if !isValidSessionName(sessionID) {
		return nil, ErrInvalidInput
	}
	if s.messageStore == nil {
		return nil, nil
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, sessionID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, sessionID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messageStore.ListBySessionID(sessionID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, sessionID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, sessionID, messages)
		}
	}
	return messages, nil
}

// publish is best-effort: losing an audit record must not fail the chat turn.
func (s *ChatService) publish(ctx context.Context, msg model.Message) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, msg)
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
