package usecase

import (
	"context"
	"errors"
	"strings"

	"integrity-responder/internal/domain"
)

const (
	defaultInboxLimit = 50
	maxInboxLimit     = 200
)

type InboxStore interface {
	ListConversations(ctx context.Context, limit int) ([]domain.ConversationSummary, error)
	GetMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, conversationID string) (int64, error)
}

type InboxService struct {
	store        InboxStore
	defaultLimit int
}

func NewInboxService(store InboxStore, defaultLimit int) (*InboxService, error) {
	if store == nil {
		return nil, errors.New("usecase: inbox store must not be nil")
	}
	if defaultLimit <= 0 {
		defaultLimit = defaultInboxLimit
	}
	return &InboxService{store: store, defaultLimit: min(defaultLimit, maxInboxLimit)}, nil
}

// List returns conversation summaries, most recently active first. A
// non-positive limit means the default; larger limits are capped.
func (s *InboxService) List(ctx context.Context, limit int) ([]domain.ConversationSummary, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	out, err := s.store.ListConversations(ctx, min(limit, maxInboxLimit))
	if err != nil {
		return nil, newMessageError(ErrorInternal, "inbox_list_error", "Failed to fetch conversations", err)
	}
	return out, nil
}

func (s *InboxService) Messages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	id, err := requireConversationID(conversationID)
	if err != nil {
		return nil, err
	}
	out, err := s.store.GetMessages(ctx, id)
	if err != nil {
		return nil, newMessageError(ErrorInternal, "inbox_messages_error", "Failed to fetch messages", err)
	}
	return out, nil
}

// MarkRead marks every unread message of the conversation read and returns how
// many changed. Repeating it is harmless.
func (s *InboxService) MarkRead(ctx context.Context, conversationID string) (int64, error) {
	id, err := requireConversationID(conversationID)
	if err != nil {
		return 0, err
	}
	n, err := s.store.MarkRead(ctx, id)
	if err != nil {
		return 0, newMessageError(ErrorInternal, "inbox_mark_read_error", "Failed to mark messages as read", err)
	}
	return n, nil
}

func requireConversationID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", newMessageError(ErrorInvalidInput, "missing_conversation_id", "Conversation ID is required", nil)
	}
	return id, nil
}
