// Package migrate applies versioned schema migrations and hand-written SQL
// files to the club database.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/pkg/logger"
	"gorm.io/gorm"
)

// MigrateFunc executes one migration step inside a transaction.
type MigrateFunc func(ctx context.Context, tx *gorm.DB) error //nolint:revive

// Migration is a named, versioned schema change.
type Migration struct {
	Version  int64
	Name     string
	Migrate  MigrateFunc
	Rollback MigrateFunc
}

// Status describes one migration and whether it has been applied.
type Status struct {
	Version   int64      `json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// ErrNothingToRollback is returned when no migration has been applied.
var ErrNothingToRollback = errors.New("there are no migrations to rollback")

func ensureTable(tx *gorm.DB) error {
	if tx.Migrator().HasTable(&models.SchemaMigration{}) {
		return nil
	}
	return tx.Migrator().CreateTable(&models.SchemaMigration{})
}

func currentVersion(tx *gorm.DB) (int64, error) {
	var last models.SchemaMigration
	err := tx.Order("version DESC").Limit(1).Find(&last).Error
	if err != nil {
		return 0, err
	}
	return last.Version, nil
}

// Migrate runs every pending migration and returns how many were applied.
func Migrate(ctx context.Context, db *gorm.DB) (int, error) {
	applied := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureTable(tx); err != nil {
			return err
		}

		version, err := currentVersion(tx)
		if err != nil {
			return err
		}

		for _, m := range migrations {
			if m.Version <= version {
				continue
			}

			logger.Infof("[Migrate] running migration %d. %s", m.Version, m.Name)
			if err := m.Migrate(ctx, tx); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
			}

			record := models.SchemaMigration{Version: m.Version, Name: m.Name, AppliedAt: time.Now()}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			applied++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return applied, nil
}

// Rollback reverts the most recently applied migration.
func Rollback(ctx context.Context, db *gorm.DB) (*Migration, error) {
	var rolledBack *Migration
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureTable(tx); err != nil {
			return err
		}

		version, err := currentVersion(tx)
		if err != nil {
			return err
		}
		if version == 0 || len(migrations) < int(version) {
			return ErrNothingToRollback
		}

		m := migrations[version-1]
		logger.Infof("[Migrate] rolling back migration %d. %s", m.Version, m.Name)
		if m.Rollback != nil {
			if err := m.Rollback(ctx, tx); err != nil {
				return fmt.Errorf("rollback %d (%s): %w", m.Version, m.Name, err)
			}
		}

		if err := tx.Where("version = ?", m.Version).Delete(&models.SchemaMigration{}).Error; err != nil {
			return err
		}

		rolledBack = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rolledBack, nil
}

// List reports every known migration with its applied state.
func List(ctx context.Context, db *gorm.DB) ([]Status, error) {
	tx := db.WithContext(ctx)

	applied := map[int64]time.Time{}
	if tx.Migrator().HasTable(&models.SchemaMigration{}) {
		var rows []models.SchemaMigration
		if err := tx.Order("version").Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			applied[r.Version] = r.AppliedAt
		}
	}

	statuses := make([]Status, 0, len(migrations))
	for _, m := range migrations {
		s := Status{Version: m.Version, Name: m.Name}
		if at, ok := applied[m.Version]; ok {
			at := at
			s.Applied = true
			s.AppliedAt = &at
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// Pending reports how many migrations have not been applied yet.
func Pending(ctx context.Context, db *gorm.DB) (int, error) {
	statuses, err := List(ctx, db)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range statuses {
		if !s.Applied {
			n++
		}
	}
	return n, nil
}
