package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"integrity-responder/internal/domain"
)

// listConversationsSQL aggregates each conversation's messages. The last message is
// picked by a correlated subquery so ties on created_at resolve to a single row.
const listConversationsSQL = `
SELECT
	c.id,
	c.guest_name,
	c.status,
	c.is_read,
	c.created_at,
	(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id) AS message_count,
	(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id AND m.is_automated) AS automated_count,
	(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id AND NOT m.is_read) AS unread_count,
	lm.content AS last_message,
	lm.created_at AS last_message_at
FROM conversations c
LEFT JOIN messages lm ON lm.id = (
	SELECT m2.id FROM messages m2
	WHERE m2.conversation_id = c.id
	ORDER BY m2.created_at DESC, m2.id DESC
	LIMIT 1
)
ORDER BY lm.created_at DESC NULLS LAST, c.created_at DESC
LIMIT ?`

// ListConversations returns up to limit conversation summaries, most recent
// activity first; conversations without messages come last.
func (s *Store) ListConversations(ctx context.Context, limit int) ([]domain.ConversationSummary, error) {
	var out []domain.ConversationSummary
	err := s.withConn(ctx, func(tx *gorm.DB) error {
		return tx.Raw(listConversationsSQL, limit).Scan(&out).Error
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListConversations: %w", err)
	}
	if out == nil {
		out = []domain.ConversationSummary{}
	}
	return out, nil
}

// GetMessages returns the full history of a conversation, oldest first.
func (s *Store) GetMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	msgs := []domain.Message{}
	err := s.withConn(ctx, func(tx *gorm.DB) error {
		return tx.Where("conversation_id = ?", conversationID).
			Order("created_at ASC").
			Order("id ASC").
			Find(&msgs).Error
	})
	if err != nil {
		return nil, fmt.Errorf("repository: GetMessages: %w", err)
	}
	return msgs, nil
}

// MarkRead flags every unread message of the conversation, and the conversation
// itself, as read. It returns how many messages changed.
func (s *Store) MarkRead(ctx context.Context, conversationID string) (int64, error) {
	var updated int64
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.Message{}).
			Where("conversation_id = ? AND is_read = ?", conversationID, false).
			Update("is_read", true)
		if res.Error != nil {
			return res.Error
		}
		updated = res.RowsAffected
		return tx.Model(&domain.Conversation{}).
			Where("id = ?", conversationID).
			Update("is_read", true).Error
	})
	if err != nil {
		return 0, fmt.Errorf("repository: MarkRead: %w", err)
	}
	return updated, nil
}
