package main

import (
	"fmt"
	"log"
	"os"

	"github.com/creatorclub/backend/internal/config"
	"github.com/creatorclub/backend/internal/models"
	"gorm.io/gorm"
)

const inconsistentPricing = "pricing_type IS NULL OR pricing_type = '' OR price_cents IS NULL OR price_cents < 0 OR (pricing_type = 'free' AND price_cents <> 0)"

func printSample(title string, communities []models.Community) {
	fmt.Println(title)
	fmt.Printf("%-38s %-40s %-10s %-10s\n", "ID", "Name", "Pricing", "Cents")
	fmt.Println("------------------------------------------------------------------------------------------------------")
	for _, c := range communities {
		name := c.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Printf("%-38s %-40s %-10s %-10d\n", c.ID, name, c.PricingType, c.PriceCents)
	}
	fmt.Println("")
}

func sample(db *gorm.DB, ids []string) []models.Community {
	var communities []models.Community
	if len(ids) == 0 {
		return communities
	}
	if err := db.Where("id IN ?", ids).Find(&communities).Error; err != nil {
		log.Fatalf("Failed to query communities: %v", err)
	}
	return communities
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := models.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer models.Close(db)

	fmt.Println("Connected to database successfully!")
	fmt.Println("")

	// Only the first 10 rows are shown before and after.
	var ids []string
	if err := db.Model(&models.Community{}).Where(inconsistentPricing).Limit(10).Pluck("id", &ids).Error; err != nil {
		log.Fatalf("Failed to query communities: %v", err)
	}
	printSample("Communities before backfill (showing first 10):", sample(db, ids))

	var total int64
	db.Model(&models.Community{}).Where(inconsistentPricing).Count(&total)
	fmt.Printf("Total communities to backfill: %d\n", total)
	fmt.Println("")

	var updated int64
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Community{}).
			Where("pricing_type IS NULL OR pricing_type = ''").
			Update("pricing_type", models.PricingFree)
		if res.Error != nil {
			return res.Error
		}
		updated += res.RowsAffected

		res = tx.Model(&models.Community{}).
			Where("price_cents IS NULL OR price_cents < 0 OR pricing_type = ?", models.PricingFree).
			Update("price_cents", 0)
		if res.Error != nil {
			return res.Error
		}
		updated += res.RowsAffected
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to backfill pricing: %v", err)
	}

	fmt.Printf("Successfully updated %d rows!\n", updated)
	fmt.Println("")

	printSample("Communities after backfill:", sample(db, ids))
}
