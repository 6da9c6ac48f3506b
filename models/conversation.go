package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SenderCustomer = "customer"
	SenderAgent    = "agent"
)

// Conversation is one WhatsApp thread with a contact, keyed by normalized
// phone number.
type Conversation struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ContactNumber string    `gorm:"index;not null" json:"contactNumber"`
	ContactName   string    `json:"contactName"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	Messages []ConversationMessage `gorm:"foreignKey:ConversationID" json:"-"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

type ConversationMessage struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;index;not null" json:"conversationId"`

	SenderType  string    `gorm:"type:varchar(32);not null" json:"senderType"` // customer or agent
	MessageText string    `gorm:"type:text;not null" json:"messageText"`
	SentAt      time.Time `gorm:"index;not null" json:"sentAt"`
	ExternalID  string    `gorm:"index" json:"externalId"` // provider message id, when known
	// No default tag: GORM would drop an explicit false from the INSERT
	// and incoming messages would never count as unread.
	IsRead bool `gorm:"index" json:"isRead"`
}

func (m *ConversationMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
