package app

import (
	"context"
	"strings"
	"time"

	"docchat/internal/model"
	"docchat/internal/storage"
)

// Characters that cannot appear in a session name. Names double as storage
// path segments, so the filesystem-hostile set is rejected up front.
const invalidNameChars = `<>:"/\|?*`

type SessionService struct {
	backend      storage.Backend
	messageStore MessageStore
	historyCache HistoryCache
}

// NewSessionService builds the session registry. messageStore and
// historyCache may be nil; session deletion then skips chat-history cleanup.
func NewSessionService(backend storage.Backend, messageStore MessageStore, historyCache HistoryCache) *SessionService {
	return &SessionService{
		backend:      backend,
		messageStore: messageStore,
		historyCache: historyCache,
	}
}

// List returns sessions in the order the backend reports them.
func (s *SessionService) List(ctx context.Context) ([]model.Session, error) {
	roots, err := s.backend.ListSessionRoots(ctx)
	if err != nil {
		return nil, err
	}

	sessions := make([]model.Session, 0, len(roots))
	for _, root := range roots {
		sessions = append(sessions, model.Session{
			ID:        root.ID,
			Name:      root.ID,
			CreatedAt: root.CreatedAt,
		})
	}
	return sessions, nil
}

// Create validates the name, rejects case-insensitive duplicates, and
// provisions the session's storage location.
func (s *SessionService) Create(ctx context.Context, name string) (*model.Session, error) {
	name = strings.TrimSpace(name)
	if !isValidSessionName(name) {
		return nil, ErrInvalidName
	}

	existing, err := s.backend.ListSessionRoots(ctx)
	if err != nil {
		return nil, err
	}
	for _, root := range existing {
		if strings.EqualFold(root.ID, name) {
			return nil, ErrDuplicateName
		}
	}

	if err := s.backend.CreateSession(ctx, name); err != nil {
		return nil, err
	}
	return &model.Session{
		ID:        name,
		Name:      name,
		CreatedAt: time.Now(),
	}, nil
}

// Delete recursively removes the session's files and index, along with its
// persisted chat history. Deleting an absent session is a no-op returning
// true, so the operation is idempotent.
func (s *SessionService) Delete(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if !isValidSessionName(id) {
		return false, ErrInvalidInput
	}

	if err := s.backend.DeleteSession(ctx, id); err != nil {
		return false, err
	}
	if s.messageStore != nil {
		if err := s.messageStore.DeleteBySessionID(id); err != nil {
			return false, err
		}
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, id)
	}
	return true, nil
}

// isValidSessionName guards every operation that joins the name into a
// storage path, so "." and ".." are rejected alongside the hostile charset.
func isValidSessionName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, invalidNameChars) {
		return false
	}
	for _, r := range name {
		if r < 0x20 {
			return false
		}
	}
	return true
}
