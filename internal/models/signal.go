package models

import "time"

// Signal is a trading signal produced by an external decision component.
// The pipeline stores signals and serves them back; it never acts on them.
type Signal struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID string `gorm:"type:varchar(100);not null;index"`

	SignalType string  `gorm:"type:varchar(10);not null;index"`
	Outcome    *string `gorm:"type:varchar(10)"`
	Confidence float64 `gorm:"not null"`

	FairProbability   *float64 `gorm:"type:numeric"`
	MarketProbability *float64 `gorm:"type:numeric"`
	Edge              *float64 `gorm:"type:numeric"`
	Reasoning         *string  `gorm:"type:text"`

	Executed bool    `gorm:"not null;default:false;index"`
	TradeID  *uint64 `gorm:"index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Signal) TableName() string {
	return "signals"
}
