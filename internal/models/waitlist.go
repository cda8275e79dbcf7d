package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WaitlistEntry is a pre-launch signup. Email is stored lowercased.
type WaitlistEntry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string    `gorm:"size:200" json:"name"`
	Interest  Interest  `gorm:"size:20;not null;index" json:"interest"`
	Source    string    `gorm:"size:100;default:landing_page" json:"source"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (WaitlistEntry) TableName() string { return "waitlist_entries" }

func (w *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}
