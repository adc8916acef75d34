package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceHistory is append-only: one row per price observation, never updated.
type PriceHistory struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID string `gorm:"type:varchar(100);not null;index"`

	YesPrice float64          `gorm:"type:numeric;not null"`
	NoPrice  float64          `gorm:"type:numeric;not null"`
	Volume   *decimal.Decimal `gorm:"type:numeric(30,10)"`

	Timestamp time.Time `gorm:"type:timestamptz;not null;index"`
}

func (PriceHistory) TableName() string {
	return "price_history"
}
