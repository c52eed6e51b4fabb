package mockrepository

import (
	"context"

	"churninsight/dashboard/internal/models"
	"churninsight/dashboard/internal/repositories"

	"github.com/stretchr/testify/mock"
)

type BatchJobRepository struct {
	mock.Mock
}

// Interface compliance check
var _ repositories.BatchJobRepository = &BatchJobRepository{}

func (m *BatchJobRepository) Upsert(ctx context.Context, record *models.BatchJobRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *BatchJobRepository) FindByJobID(ctx context.Context, jobID string) (*models.BatchJobRecord, error) {
	args := m.Called(ctx, jobID)
	record, _ := args.Get(0).(*models.BatchJobRecord)
	return record, args.Error(1)
}

func (m *BatchJobRepository) Recent(ctx context.Context, sessionID string, limit int) ([]models.BatchJobRecord, error) {
	args := m.Called(ctx, sessionID, limit)
	records, _ := args.Get(0).([]models.BatchJobRecord)
	return records, args.Error(1)
}
