package db

import (
	"fmt"

	"github.com/funildigital/funil/internal/config"
	"github.com/funildigital/funil/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Agent{},
		&models.Session{},
		&models.RotationCounter{},
		&models.Lead{},
		&models.LeadEvent{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedAgents upserts Agent rows from configuration.
func SeedAgents(db *gorm.DB, agents []config.AgentConfig) error {
	for _, ac := range agents {
		role := ac.Role
		if role == "" {
			role = "sales"
		}
		agent := models.Agent{
			Name:   ac.Name,
			Role:   role,
			Phone:  ac.Phone,
			Email:  ac.Email,
			Active: true,
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "phone", "email", "active"}),
		}).Create(&agent)
		if result.Error != nil {
			return fmt.Errorf("db: seed agent %q: %w", ac.Name, result.Error)
		}
	}
	return nil
}

// SeedCounter ensures the rotation counter row exists, starting at zero.
// Existing counters are left untouched so re-running init never resets
// rotation state.
func SeedCounter(db *gorm.DB, name string) error {
	counter := models.RotationCounter{Name: name, Value: 0}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter)
	if result.Error != nil {
		return fmt.Errorf("db: seed counter %q: %w", name, result.Error)
	}
	return nil
}
