package chatctrl

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"kbchat/src/core/assistant"
)

// chatMessage is the persistence shape of one chat turn.
type chatMessage struct {
	MessageID string    `gorm:"primaryKey;column:message_id"`
	SessionID string    `gorm:"index;not null;column:session_id"`
	Role      string    `gorm:"not null"`
	Content   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"index"`
}

func (chatMessage) TableName() string {
	return "chat_messages"
}

// ChatService persists chat transcripts in PostgreSQL. It implements
// assistant.HistoryStore.
type ChatService struct {
	db *gorm.DB
}

func NewChatService(db *gorm.DB) (*ChatService, error) {
	return &ChatService{db: db}, nil
}

func (s *ChatService) SaveMessage(ctx context.Context, msg *assistant.ChatMessage) error {
	record := &chatMessage{
		MessageID: msg.MessageID,
		SessionID: msg.SessionID,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}

	result := s.db.WithContext(ctx).Create(record)
	if result.Error != nil {
		return fmt.Errorf("failed to save chat message: %v", result.Error)
	}

	return nil
}

func (s *ChatService) ListMessages(ctx context.Context, sessionID string) ([]assistant.ChatMessage, error) {
	var records []chatMessage

	result := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list chat messages: %v", result.Error)
	}

	messages := make([]assistant.ChatMessage, 0, len(records))
	for _, r := range records {
		messages = append(messages, assistant.ChatMessage{
			SessionID: r.SessionID,
			MessageID: r.MessageID,
			Role:      r.Role,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		})
	}

	return messages, nil
}
