package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckoutSession records a session opened with the payment provider so the
// webhook and the return page can be correlated with the join request.
type CheckoutSession struct {
	ID                string         `gorm:"primaryKey;size:36" json:"id"`
	UserID            string         `gorm:"size:36;not null;index" json:"user_id"`
	CommunityID       string         `gorm:"size:36;not null;index" json:"community_id"`
	ProviderSessionID string         `gorm:"uniqueIndex;size:255;not null" json:"provider_session_id"`
	CheckoutURL       string         `gorm:"size:1000" json:"checkout_url"`
	PriceCents        int64          `json:"price_cents"`
	PricingType       PricingType    `gorm:"size:20" json:"pricing_type"`
	Status            CheckoutStatus `gorm:"size:20;default:pending;index" json:"status"`
	ExpiresAt         time.Time      `gorm:"index" json:"expires_at"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (CheckoutSession) TableName() string { return "checkout_sessions" }

func (s *CheckoutSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.ProviderSessionID == "" {
		s.ProviderSessionID = "local_" + s.ID
	}
	return nil
}
