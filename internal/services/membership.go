package services

import (
	"context"

	"github.com/creatorclub/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipStatus is the resolver's answer for one (user, community) pair.
type MembershipStatus int

const (
	StatusUnknown MembershipStatus = iota
	StatusNonMember
	StatusMember
)

func (s MembershipStatus) String() string {
	switch s {
	case StatusMember:
		return "member"
	case StatusNonMember:
		return "non_member"
	default:
		return "unknown"
	}
}

func (s MembershipStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type MembershipService struct {
	db *gorm.DB
}

func NewMembershipService(db *gorm.DB) *MembershipService {
	return &MembershipService{db: db}
}

// IsMember reports whether a membership row exists.
func (s *MembershipService) IsMember(ctx context.Context, userID, communityID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Status never reports Member on a lookup error. An empty userID is an
// anonymous visitor and is answered without a query.
func (s *MembershipService) Status(ctx context.Context, userID, communityID string) MembershipStatus {
	if userID == "" {
		return StatusNonMember
	}
	ok, err := s.IsMember(ctx, userID, communityID)
	if err != nil {
		return StatusUnknown
	}
	if ok {
		return StatusMember
	}
	return StatusNonMember
}

// Grant inserts a membership. A row that already exists is not an error;
// created tells the two cases apart.
func (s *MembershipService) Grant(ctx context.Context, userID, communityID string, source models.MembershipSource) (bool, error) {
	return grantMembership(s.db.WithContext(ctx), userID, communityID, source)
}

func grantMembership(db *gorm.DB, userID, communityID string, source models.MembershipSource) (bool, error) {
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "community_id"}},
		DoNothing: true,
	}).Create(&models.Membership{
		UserID:      userID,
		CommunityID: communityID,
		Source:      source,
	})
	if res.Error != nil {
		if models.IsDuplicateKey(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListForUser returns the communities a user belongs to, newest first.
func (s *MembershipService) ListForUser(ctx context.Context, userID string) ([]models.Community, error) {
	var communities []models.Community
	err := s.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.community_id = communities.id").
		Where("memberships.user_id = ?", userID).
		Order("memberships.created_at DESC").
		Find(&communities).Error
	return communities, err
}
