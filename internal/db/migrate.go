package db

import (
	"pointstake/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.User{},
		&models.Market{},
		&models.Position{},
		&models.Decision{},
		&models.LedgerEntry{},
		&models.PriceSnapshot{},
	)
}
