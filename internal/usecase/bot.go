package usecase

import (
	"context"
	"errors"
)

type BotStore interface {
	BotState(ctx context.Context, conversationID string) (bool, error)
	ToggleBotState(ctx context.Context, conversationID string) (bool, error)
}

type BotService struct {
	store BotStore
}

func NewBotService(store BotStore) (*BotService, error) {
	if store == nil {
		return nil, errors.New("usecase: bot store must not be nil")
	}
	return &BotService{store: store}, nil
}

// Status reports whether automated replies are on. Conversations never toggled
// are active.
func (s *BotService) Status(ctx context.Context, conversationID string) (bool, error) {
	id, err := requireConversationID(conversationID)
	if err != nil {
		return false, err
	}
	active, err := s.store.BotState(ctx, id)
	if err != nil {
		return false, newMessageError(ErrorInternal, "bot_status_error", "Failed to get bot status", err)
	}
	return active, nil
}

func (s *BotService) Toggle(ctx context.Context, conversationID string) (bool, error) {
	id, err := requireConversationID(conversationID)
	if err != nil {
		return false, err
	}
	active, err := s.store.ToggleBotState(ctx, id)
	if err != nil {
		return false, newMessageError(ErrorInternal, "bot_toggle_error", "Failed to toggle bot", err)
	}
	return active, nil
}
