package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageTemplate holds broadcast text with {placeholder} markers.
// Supported placeholders: {nombre_cliente}, {zona}, {enlace_web}.
type MessageTemplate struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t *MessageTemplate) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}
