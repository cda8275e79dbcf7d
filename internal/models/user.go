package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account together with its public profile fields.
type User struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Email       string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password    string     `gorm:"size:255" json:"-"` // bcrypt hash
	DisplayName string     `gorm:"size:100" json:"display_name"`
	AvatarURL   string     `gorm:"size:500" json:"avatar_url"`
	Role        Role       `gorm:"size:20;default:student" json:"role"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
