package db

import (
	"fmt"
	"time"

	"github.com/zulandar/showroom/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.ChatMessage{},
		&models.PresenceStatus{},
		&models.Lead{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedPresence creates the shared presence record as offline if it does not
// exist yet. An existing record is left untouched.
func SeedPresence(db *gorm.DB) error {
	row := models.PresenceStatus{
		Key:       models.PresenceKey,
		Online:    false,
		UpdatedAt: time.Unix(0, 0).UTC(),
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("db: seed presence: %w", result.Error)
	}
	return nil
}
