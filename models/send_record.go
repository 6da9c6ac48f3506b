package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SendRecord is the append-only ledger of every attempted broadcast send.
// One row per rule-firing per customer; never updated after creation.
type SendRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CustomerID uuid.UUID `gorm:"type:uuid;index;not null" json:"customerId"`
	TemplateID uuid.UUID `gorm:"type:uuid;index;not null" json:"templateId"`

	RenderedText string     `gorm:"type:text;not null" json:"renderedText"`
	Success      bool       `gorm:"default:false" json:"success"`
	SentAt       *time.Time `json:"sentAt"` // null when the send failed
	Error        *string    `gorm:"type:text" json:"error"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (s *SendRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}
