package migrate

import (
	"context"

	"github.com/creatorclub/backend/internal/models"
	"gorm.io/gorm"
)

// Keep this in order of execution, oldest to newest.
var migrations = []Migration{
	createTables,
	backfillPricing,
	normalizeWaitlist,
}

var createTables = Migration{
	Version: 1,
	Name:    "create tables",
	Migrate: func(ctx context.Context, tx *gorm.DB) error {
		return tx.AutoMigrate(models.All()...)
	},
	Rollback: func(ctx context.Context, tx *gorm.DB) error {
		all := models.All()
		for i := len(all) - 1; i >= 0; i-- {
			if err := tx.Migrator().DropTable(all[i]); err != nil {
				return err
			}
		}
		return nil
	},
}

// Communities created before pricing existed have empty or NULL columns.
var backfillPricing = Migration{
	Version: 2,
	Name:    "backfill pricing defaults",
	Migrate: func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Model(&models.Community{}).
			Where("pricing_type IS NULL OR pricing_type = ''").
			Update("pricing_type", models.PricingFree).Error; err != nil {
			return err
		}
		return tx.Model(&models.Community{}).
			Where("price_cents IS NULL OR price_cents < 0 OR pricing_type = ?", models.PricingFree).
			Update("price_cents", 0).Error
	},
}

var normalizeWaitlist = Migration{
	Version: 3,
	Name:    "normalize waitlist emails",
	Migrate: func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Model(&models.WaitlistEntry{}).
			Where("email <> LOWER(TRIM(email))").
			Update("email", gorm.Expr("LOWER(TRIM(email))")).Error; err != nil {
			return err
		}
		return tx.Model(&models.WaitlistEntry{}).
			Where("source IS NULL OR source = ''").
			Update("source", "landing_page").Error
	},
}
