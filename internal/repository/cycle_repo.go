package repository

import (
	"fmt"
	"time"

	"github.com/nsvirk/nsequotes/internal/models"
	"gorm.io/gorm"
)

// CycleRepository is the database repository for collection cycle runs
type CycleRepository struct {
	DB *gorm.DB
}

// NewCycleRepository creates a new cycle repository
func NewCycleRepository(db *gorm.DB) *CycleRepository {
	return &CycleRepository{DB: db}
}

// InsertCycleRun stores one cycle summary
func (r *CycleRepository) InsertCycleRun(run *models.CycleRunModel) error {
	if err := r.DB.Create(run).Error; err != nil {
		return fmt.Errorf("failed to insert into %s: %w", models.CycleRunsTableName, err)
	}
	return nil
}

// GetRecentCycleRuns returns the latest runs, newest first
func (r *CycleRepository) GetRecentCycleRuns(limit int) ([]models.CycleRunModel, error) {
	var runs []models.CycleRunModel
	err := r.DB.Order("started_at DESC").Order("id DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent cycle runs: %w", err)
	}
	return runs, nil
}

// DeleteCycleRunsBefore removes runs that started before the cutoff
func (r *CycleRepository) DeleteCycleRunsBefore(cutoff time.Time) (int64, error) {
	result := r.DB.Where("started_at < ?", cutoff).Delete(&models.CycleRunModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune %s: %w", models.CycleRunsTableName, result.Error)
	}
	return result.RowsAffected, nil
}
