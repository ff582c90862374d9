package models

import (
	"time"

	"gorm.io/datatypes"
)

// CycleRunsTableName is the name of the table for collection cycles
var CycleRunsTableName = "cycle_runs"

// CycleRunModel is the persisted summary of one collection cycle
type CycleRunModel struct {
	ID            uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	StartedAt     time.Time      `gorm:"index" json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	DurationMs    int64          `json:"duration_ms"`
	Symbols       int            `json:"symbols"`
	Succeeded     int            `json:"succeeded"`
	Failed        int            `json:"failed"`
	RowsWritten   int            `json:"rows_written"`
	FailedSymbols datatypes.JSON `json:"failed_symbols"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"-"`
}

// TableName specifies the table name for the CycleRunModel
func (CycleRunModel) TableName() string {
	return CycleRunsTableName
}
