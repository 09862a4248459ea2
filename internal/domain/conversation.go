package domain

import "time"

// SenderType tells who produced a message.
type SenderType string

const (
	SenderGuest SenderType = "guest"
	SenderBot   SenderType = "bot"
)

// Conversation is one guest thread shown in the inbox.
type Conversation struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	GuestName string    `json:"guest_name"`
	Status    string    `json:"status"`
	IsRead    bool      `gorm:"not null" json:"is_read"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Conversation) TableName() string { return "conversations" }

// Message is append-only; only IsRead ever changes, and only from false to true.
type Message struct {
	ID             string        `gorm:"primaryKey" json:"id"`
	ConversationID string        `gorm:"not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	Conversation   *Conversation `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Content        string        `json:"content"`
	SenderType     SenderType    `gorm:"not null" json:"sender_type"`
	IsAutomated    bool          `gorm:"not null" json:"is_automated"`
	IsRead         bool          `gorm:"not null" json:"is_read"`
	CreatedAt      time.Time     `gorm:"not null;index:idx_messages_conversation_created,priority:2" json:"created_at"`
}

func (Message) TableName() string { return "messages" }

// ConversationSummary is a conversation plus the aggregates the inbox list shows.
// LastMessage and LastMessageAt are nil for conversations without messages.
type ConversationSummary struct {
	Conversation
	MessageCount   int        `json:"message_count"`
	AutomatedCount int        `json:"automated_count"`
	UnreadCount    int        `json:"unread_count"`
	LastMessage    *string    `json:"last_message"`
	LastMessageAt  *time.Time `json:"last_message_at"`
}

// BotSetting stores the bot-active flag of a conversation. A missing row means active.
type BotSetting struct {
	ConversationID string    `gorm:"primaryKey" json:"conversation_id"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (BotSetting) TableName() string { return "bot_settings" }
