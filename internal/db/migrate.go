package db

import (
	"marketpipe/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Market{},
		&models.Trade{},
		&models.Signal{},
		&models.PriceHistory{},
		&models.PipelineState{},
	)
}
