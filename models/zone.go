package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Zone is a geographic delivery area. Every customer belongs to exactly one zone.
type Zone struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`

	Customers []Customer `gorm:"foreignKey:ZoneID" json:"-"`
}

func (z *Zone) BeforeCreate(tx *gorm.DB) (err error) {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	return
}
