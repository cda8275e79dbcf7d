package services

import (
	"context"
	"strings"

	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/pkg/response"
	"gorm.io/gorm"
)

type CommunityService struct {
	db      *gorm.DB
	pricing *PricingService
}

func NewCommunityService(db *gorm.DB, pricing *PricingService) *CommunityService {
	return &CommunityService{db: db, pricing: pricing}
}

type CreateCommunityRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description"`
	PricingType string `json:"pricing_type"`
	PriceCents  int64  `json:"price_cents"`
}

type UpdatePricingRequest struct {
	PricingType string `json:"pricing_type" binding:"required"`
	PriceCents  int64  `json:"price_cents"`
}

type CommunityListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search"`
	Pricing  string `form:"pricing_type"`
}

type CommunityListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.Community `json:"items"`
}

// ParsePricing turns request fields into validated pricing.
func ParsePricing(pricingType string, priceCents int64) (Pricing, error) {
	p := Pricing{Type: models.PricingFree}
	if pricingType != "" {
		t, err := models.ParsePricingType(pricingType)
		if err != nil {
			return Pricing{}, response.NewBadRequest("pricing_type must be free, one-time or monthly")
		}
		p.Type = t
	}
	p.PriceCents = priceCents
	p = normalizePricing(p)
	if err := validatePricing(p); err != nil {
		return Pricing{}, err
	}
	return p, nil
}

// normalizePricing drops the price of a free community, whatever was sent.
func normalizePricing(p Pricing) Pricing {
	if p.Type == models.PricingFree {
		p.PriceCents = 0
	}
	return p
}

func validatePricing(p Pricing) error {
	if p.PriceCents < 0 {
		return response.NewBadRequest("price_cents cannot be negative")
	}
	if p.Type.IsPaid() && p.PriceCents == 0 {
		return response.NewBadRequest("paid communities need a positive price_cents")
	}
	return nil
}

// Create stores a community and grants its creator membership in one transaction.
func (s *CommunityService) Create(ctx context.Context, creator *models.User, req *CreateCommunityRequest) (*models.Community, error) {
	if !creator.Role.CanCreateCommunity() {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, response.NewBadRequest("name is required")
	}
	pricing, err := ParsePricing(req.PricingType, req.PriceCents)
	if err != nil {
		return nil, err
	}

	community := &models.Community{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		PricingType: pricing.Type,
		PriceCents:  pricing.PriceCents,
		CreatorID:   creator.ID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			return err
		}
		return tx.Create(&models.Membership{
			UserID:      creator.ID,
			CommunityID: community.ID,
			Source:      models.SourceCreator,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return community, nil
}

func (s *CommunityService) Get(ctx context.Context, id string) (*models.Community, error) {
	var community models.Community
	if err := s.db.WithContext(ctx).First(&community, "id = ?", id).Error; err != nil {
		if models.IsNotFound(err) {
			return nil, ErrCommunityNotFound
		}
		return nil, err
	}
	return &community, nil
}

func (s *CommunityService) List(ctx context.Context, req *CommunityListRequest) (*CommunityListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Community{})
	if req.Search != "" {
		query = query.Where("name LIKE ?", "%"+req.Search+"%")
	}
	if req.Pricing != "" {
		query = query.Where("pricing_type = ?", req.Pricing)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.Community
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}

	return &CommunityListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    items,
	}, nil
}

// UpdatePricing changes pricing; only the owner or an admin may do so.
func (s *CommunityService) UpdatePricing(ctx context.Context, actorID string, actorRole models.Role, id string, req *UpdatePricingRequest) (*models.Community, error) {
	community, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if community.CreatorID != actorID && actorRole != models.RoleAdmin {
		return nil, ErrForbidden
	}

	pricing, err := ParsePricing(req.PricingType, req.PriceCents)
	if err != nil {
		return nil, err
	}
	if _, err := s.pricing.Update(ctx, id, pricing); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}
