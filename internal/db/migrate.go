package db

import (
	"fmt"

	"github.com/zulandar/boxcar/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the GORM models backing the ingestion pipeline.
func AllModels() []interface{} {
	return []interface{}{
		&models.Message{},
		&models.Post{},
		&models.File{},
		&models.MediaType{},
	}
}

// AutoMigrate creates or updates all pipeline tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// DropAll drops every pipeline table. Missing tables are fine; reset on a
// fresh database is a no-op.
func DropAll(db *gorm.DB) error {
	for _, m := range AllModels() {
		if !db.Migrator().HasTable(m) {
			continue
		}
		if err := db.Migrator().DropTable(m); err != nil {
			return fmt.Errorf("db: drop table for %T: %w", m, err)
		}
	}
	return nil
}

// SeedTypes upserts MediaType rows from the configured type map. Only ids
// appear in config; names default to type-<id> and can be edited in place.
func SeedTypes(db *gorm.DB, typeMap map[int64]int64, now int64) error {
	seen := make(map[int64]bool)
	for _, typeID := range typeMap {
		if seen[typeID] {
			continue
		}
		seen[typeID] = true

		mt := models.MediaType{
			ID:   typeID,
			Name: fmt.Sprintf("type-%d", typeID),
			Time: now,
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&mt)
		if result.Error != nil {
			return fmt.Errorf("db: seed type %d: %w", typeID, result.Error)
		}
	}
	return nil
}
