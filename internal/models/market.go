package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Market is one prediction market as tracked by the pipeline. MarketID is the
// upstream identifier and the upsert key; the surrogate ID exists only for gorm.
type Market struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID string `gorm:"type:varchar(100);not null;uniqueIndex"`

	Question    string  `gorm:"type:text;not null"`
	Description *string `gorm:"type:text"`

	// Outcome probabilities as quoted upstream. Expected in [0,1] but stored
	// as received; out-of-range values are a data-quality signal, not an error.
	YesPrice *float64 `gorm:"type:numeric"`
	NoPrice  *float64 `gorm:"type:numeric"`

	Volume    decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Volume24h decimal.Decimal `gorm:"column:volume_24h;type:numeric(30,10);not null"`
	Liquidity decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	Active   bool    `gorm:"not null;index"`
	Resolved bool    `gorm:"not null;index"`
	Outcome  *string `gorm:"type:varchar(10)"`

	EndDate *time.Time     `gorm:"type:timestamptz"`
	RawJSON datatypes.JSON `gorm:"column:raw_json"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;index"`
}

func (Market) TableName() string {
	return "markets"
}
