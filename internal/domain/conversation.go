package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is a chat thread keyed by its participant set. The core
// only creates/reuses threads and appends system messages; transport is
// the messaging collaborator's concern.
type Conversation struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Participants []User    `gorm:"many2many:conversation_participants" json:"participants,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Conversation) TableName() string {
	return "Conversations"
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Message is one entry in a conversation. System messages carry a nil
// sender and is_system=true.
type Message struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID  `gorm:"column:conversation_id;type:uuid;not null;index" json:"conversation_id"`
	SenderID       *uuid.UUID `gorm:"column:sender_id;type:uuid" json:"sender_id,omitempty"`
	Content        string     `gorm:"column:content;not null" json:"content"`
	IsSystem       bool       `gorm:"column:is_system;default:false" json:"is_system"`
	IsRead         bool       `gorm:"column:is_read;default:false" json:"is_read"`
	CreatedAt      time.Time  `json:"timestamp"`
}

func (Message) TableName() string {
	return "Messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
