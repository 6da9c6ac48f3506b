package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Customer struct {
	ID     uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ZoneID uuid.UUID `gorm:"type:uuid;index;not null" json:"zoneId"`

	Code    string `json:"code"`
	Name    string `gorm:"not null" json:"name"`
	Phone   string `gorm:"not null" json:"phone"` // stored as entered, normalized at send time
	Email   string `json:"email"`
	Address string `gorm:"type:text" json:"address"`
	Town    string `json:"town"`

	// Deactivated customers are kept for send history but excluded from broadcasts.
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`

	SendRecords []SendRecord `gorm:"foreignKey:CustomerID" json:"-"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}
