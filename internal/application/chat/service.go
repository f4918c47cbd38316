package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookbridge-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes the messaging collaborator surface the core consumes:
// find-or-create a conversation and append messages. Threads are keyed by
// participant set only, never by subject listing or delivery.
type Service struct {
	DB *gorm.DB
}

// FindOrCreateConversation returns the conversation whose participant set
// is exactly the given users, creating it if absent. Works inside the
// caller's transaction so notifications commit or roll back with the
// state change that triggered them.
func FindOrCreateConversation(tx *gorm.DB, userIDs ...uuid.UUID) (*domain.Conversation, error) {
	if len(userIDs) < 2 {
		return nil, errors.New("A conversation needs at least two participants")
	}

	// Conversations containing the first participant, narrowed by each of
	// the rest, then filtered to exactly this many members.
	var candidates []uuid.UUID
	if err := tx.Table("conversation_participants").
		Where("user_id = ?", userIDs[0]).
		Pluck("conversation_id", &candidates).Error; err != nil {
		return nil, err
	}
	for _, uid := range userIDs[1:] {
		if len(candidates) == 0 {
			break
		}
		var next []uuid.UUID
		if err := tx.Table("conversation_participants").
			Where("user_id = ? AND conversation_id IN ?", uid, candidates).
			Pluck("conversation_id", &next).Error; err != nil {
			return nil, err
		}
		candidates = next
	}
	for _, cid := range candidates {
		var count int64
		if err := tx.Table("conversation_participants").
			Where("conversation_id = ?", cid).Count(&count).Error; err != nil {
			return nil, err
		}
		if int(count) == len(userIDs) {
			var conv domain.Conversation
			if err := tx.Where("id = ?", cid).First(&conv).Error; err != nil {
				return nil, err
			}
			return &conv, nil
		}
	}

	conv := domain.Conversation{}
	if err := tx.Create(&conv).Error; err != nil {
		return nil, err
	}
	for _, uid := range userIDs {
		if err := tx.Exec(
			"INSERT INTO conversation_participants (conversation_id, user_id) VALUES (?, ?)",
			conv.ID, uid,
		).Error; err != nil {
			return nil, err
		}
	}
	return &conv, nil
}

// PostSystemMessage appends a system message (nil sender) to a
// conversation and bumps its updated_at so it sorts to the top.
func PostSystemMessage(tx *gorm.DB, conversationID uuid.UUID, text string) error {
	msg := domain.Message{
		ConversationID: conversationID,
		SenderID:       nil,
		Content:        text,
		IsSystem:       true,
	}
	if err := tx.Create(&msg).Error; err != nil {
		return err
	}
	return tx.Model(&domain.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", time.Now()).Error
}

// ListConversations returns the user's threads, most recently active first.
func (s *Service) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	var ids []uuid.UUID
	if err := s.DB.WithContext(ctx).Table("conversation_participants").
		Where("user_id = ?", userID).
		Pluck("conversation_id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Conversation{}, nil
	}
	var convs []domain.Conversation
	if err := s.DB.WithContext(ctx).Preload("Participants").
		Where("id IN ?", ids).Order("updated_at DESC").Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

// ListMessages returns a conversation's messages oldest first. Only a
// participant may read them.
func (s *Service) ListMessages(ctx context.Context, userID, conversationID uuid.UUID) ([]domain.Message, error) {
	if err := s.requireParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	var msgs []domain.Message
	if err := s.DB.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage appends a user message to a conversation the sender belongs to.
func (s *Service) SendMessage(ctx context.Context, senderID, conversationID uuid.UUID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("Message content is required")
	}
	if err := s.requireParticipant(ctx, senderID, conversationID); err != nil {
		return nil, err
	}
	msg := domain.Message{
		ConversationID: conversationID,
		SenderID:       &senderID,
		Content:        content,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// StartConversation finds or creates the 1-on-1 thread with another user.
func (s *Service) StartConversation(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.Conversation, error) {
	if userID == otherUserID {
		return nil, errors.New("Cannot create conversation with yourself")
	}
	var other domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", otherUserID).First(&other).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New("User not found")
		}
		return nil, err
	}
	var conv *domain.Conversation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		conv, txErr = FindOrCreateConversation(tx, userID, otherUserID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Service) requireParticipant(ctx context.Context, userID, conversationID uuid.UUID) error {
	var count int64
	if err := s.DB.WithContext(ctx).Table("conversation_participants").
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errors.New("Not a participant in this conversation")
	}
	return nil
}
