package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Community is a creator-run space that students join.
type Community struct {
	ID          string      `gorm:"primaryKey;size:36" json:"id"`
	Name        string      `gorm:"size:200;not null" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	PricingType PricingType `gorm:"size:20;default:free" json:"pricing_type"`
	PriceCents  int64       `gorm:"default:0" json:"price_cents"` // smallest currency unit
	CreatorID   string      `gorm:"size:36;index" json:"creator_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (Community) TableName() string { return "communities" }

func (c *Community) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.PricingType == "" || c.PricingType == PricingFree {
		c.PricingType = PricingFree
		c.PriceCents = 0
	}
	return nil
}

// RequiresPayment is true only for a paid type with a positive price.
func (c *Community) RequiresPayment() bool {
	return c.PricingType.IsPaid() && c.PriceCents > 0
}
