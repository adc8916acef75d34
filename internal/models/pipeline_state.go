package models

import (
	"time"

	"gorm.io/datatypes"
)

// PipelineState persists the outcome of the latest ingestion cycles per scope
// so freshness and counters survive a process restart.
type PipelineState struct {
	Scope         string         `gorm:"primaryKey;type:text"`
	LastSuccessAt *time.Time     `gorm:"type:timestamptz"`
	LastAttemptAt *time.Time     `gorm:"type:timestamptz"`
	LastError     *string        `gorm:"type:text"`
	StatsJSON     datatypes.JSON `gorm:"column:stats_json"`
}

func (PipelineState) TableName() string {
	return "pipeline_state"
}
