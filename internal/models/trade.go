package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade records a position taken against a market. MarketID is an advisory
// reference; no foreign key is enforced at the storage layer.
type Trade struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID string `gorm:"type:varchar(100);not null;index"`

	Side    string `gorm:"type:varchar(10);not null"`
	Outcome string `gorm:"type:varchar(10);not null"`

	EntryPrice   *float64        `gorm:"type:numeric"`
	ExitPrice    *float64        `gorm:"type:numeric"`
	PositionSize decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	Confidence *float64 `gorm:"type:numeric"`
	Reasoning  *string  `gorm:"type:text"`

	Status string `gorm:"type:varchar(20);not null;default:'open';index"`

	PnLUSD     *decimal.Decimal `gorm:"column:pnl_usd;type:numeric(30,10)"`
	PnLPercent *decimal.Decimal `gorm:"column:pnl_percent;type:numeric(20,10)"`

	OpenedAt time.Time  `gorm:"type:timestamptz;not null"`
	ClosedAt *time.Time `gorm:"type:timestamptz"`
}

func (Trade) TableName() string {
	return "trades"
}

const (
	TradeStatusOpen   = "open"
	TradeStatusClosed = "closed"
)
