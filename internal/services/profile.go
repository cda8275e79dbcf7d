package services

import (
	"context"
	"strings"

	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/pkg/response"
	"gorm.io/gorm"
)

type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=100"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,max=500"`
}

// Profile is the public view of a user.
type Profile struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	AvatarURL   string      `json:"avatar_url"`
	Role        models.Role `json:"role"`
	Badge       string      `json:"badge"`
}

func NewProfile(u *models.User) *Profile {
	return &Profile{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Role:        u.Role,
		Badge:       u.Role.Badge(),
	}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*Profile, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if models.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return NewProfile(&user), nil
}

func (s *ProfileService) Update(ctx context.Context, userID string, req *UpdateProfileRequest) (*Profile, error) {
	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, response.NewBadRequest("display name cannot be empty")
		}
		updates["display_name"] = name
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}
	return s.Get(ctx, userID)
}
