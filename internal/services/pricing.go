package services

import (
	"context"
	"database/sql"

	"github.com/creatorclub/backend/internal/models"
	"gorm.io/gorm"
)

// Pricing is the effective price of a community at the time of reading.
type Pricing struct {
	Type       models.PricingType `json:"pricing_type"`
	PriceCents int64              `json:"price_cents"`
}

// RequiresPayment is true only for a paid type with a positive price.
func (p Pricing) RequiresPayment() bool {
	return p.Type.IsPaid() && p.PriceCents > 0
}

type PricingService struct {
	db *gorm.DB
}

func NewPricingService(db *gorm.DB) *PricingService {
	return &PricingService{db: db}
}

// Lookup reads pricing straight from storage. Rows written before pricing
// existed may hold NULLs; those, and unknown types, read as free.
func (s *PricingService) Lookup(ctx context.Context, communityID string) (Pricing, error) {
	var row struct {
		PricingType sql.NullString
		PriceCents  sql.NullInt64
	}
	res := s.db.WithContext(ctx).Model(&models.Community{}).
		Select("pricing_type", "price_cents").
		Where("id = ?", communityID).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return Pricing{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Pricing{}, ErrCommunityNotFound
	}

	p := Pricing{Type: models.PricingFree}
	if row.PricingType.Valid {
		if t, err := models.ParsePricingType(row.PricingType.String); err == nil {
			p.Type = t
		}
	}
	if row.PriceCents.Valid && p.Type.IsPaid() {
		p.PriceCents = row.PriceCents.Int64
	}
	return p, nil
}

// Update validates and stores new pricing.
func (s *PricingService) Update(ctx context.Context, communityID string, p Pricing) (Pricing, error) {
	p = normalizePricing(p)
	if err := validatePricing(p); err != nil {
		return Pricing{}, err
	}

	// RowsAffected counts changed rows on mysql, so existence is checked apart.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Community{}).Where("id = ?", communityID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrCommunityNotFound
		}
		return tx.Model(&models.Community{}).
			Where("id = ?", communityID).
			Updates(map[string]interface{}{"pricing_type": p.Type, "price_cents": p.PriceCents}).Error
	})
	if err != nil {
		return Pricing{}, err
	}
	return p, nil
}
