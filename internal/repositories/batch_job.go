package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"churninsight/dashboard/internal/models"
)

// BatchJobRepository keeps the local history of submitted batch jobs.
type BatchJobRepository interface {
	Upsert(ctx context.Context, record *models.BatchJobRecord) error
	FindByJobID(ctx context.Context, jobID string) (*models.BatchJobRecord, error)
	Recent(ctx context.Context, sessionID string, limit int) ([]models.BatchJobRecord, error)
}

type batchJobRepository struct {
	db *gorm.DB
}

func NewBatchJobRepository(db *gorm.DB) BatchJobRepository {
	return &batchJobRepository{db: db}
}

// Upsert inserts the record, or refreshes status and counts when the job is
// already known. The original file name and session are kept.
func (r *batchJobRepository) Upsert(ctx context.Context, record *models.BatchJobRecord) error {
	record.UpdatedAt = time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.UpdatedAt
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "job_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "processed", "success_count", "error_count", "message", "updated_at",
			}),
		}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to save batch job: %w", err)
	}
	return nil
}

func (r *batchJobRepository) FindByJobID(ctx context.Context, jobID string) (*models.BatchJobRecord, error) {
	var record models.BatchJobRecord
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("batch job not found")
		}
		return nil, fmt.Errorf("failed to find batch job: %w", err)
	}
	return &record, nil
}

// Recent lists the newest jobs first. An empty sessionID lists every session.
func (r *batchJobRepository) Recent(ctx context.Context, sessionID string, limit int) ([]models.BatchJobRecord, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}

	var records []models.BatchJobRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list batch jobs: %w", err)
	}
	return records, nil
}
