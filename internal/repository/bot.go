package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"integrity-responder/internal/domain"
)

// toggleBotStateSQL flips the flag in one statement. A missing row counts as
// active, so the first toggle stores false.
const toggleBotStateSQL = `
INSERT INTO bot_settings (conversation_id, is_active, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (conversation_id)
DO UPDATE SET is_active = NOT bot_settings.is_active, updated_at = excluded.updated_at
RETURNING is_active`

// BotState returns the stored flag, or true when the conversation has none.
func (s *Store) BotState(ctx context.Context, conversationID string) (bool, error) {
	var setting domain.BotSetting
	err := s.withConn(ctx, func(tx *gorm.DB) error {
		return tx.Where("conversation_id = ?", conversationID).Take(&setting).Error
	})
	if notFound(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("repository: BotState: %w", err)
	}
	return setting.IsActive, nil
}

// ToggleBotState flips the flag and returns the new value.
func (s *Store) ToggleBotState(ctx context.Context, conversationID string) (bool, error) {
	var active bool
	err := s.withConn(ctx, func(tx *gorm.DB) error {
		return tx.Raw(toggleBotStateSQL, conversationID, false, time.Now().UTC()).Scan(&active).Error
	})
	if err != nil {
		return false, fmt.Errorf("repository: ToggleBotState: %w", err)
	}
	return active, nil
}
