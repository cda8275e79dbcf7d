package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership grants a user access to a community. The row's existence is the
// only access signal; rows are never updated in place.
type Membership struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	UserID      string           `gorm:"size:36;not null;uniqueIndex:ux_memberships_user_community" json:"user_id"`
	CommunityID string           `gorm:"size:36;not null;uniqueIndex:ux_memberships_user_community;index" json:"community_id"`
	Source      MembershipSource `gorm:"size:20;not null" json:"source"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (Membership) TableName() string { return "memberships" }

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Source == "" {
		m.Source = SourceDirect
	}
	return nil
}
