package mockbackend

import (
	"context"
	"io"

	"churninsight/dashboard/internal/models"
	"churninsight/dashboard/internal/services"

	"github.com/stretchr/testify/mock"
)

type Client struct {
	mock.Mock
}

// Interface compliance check
var _ services.BackendClient = &Client{}

func (m *Client) SearchClients(ctx context.Context, filters models.FilterState) (interface{}, error) {
	args := m.Called(ctx, filters)
	return args.Get(0), args.Error(1)
}

func (m *Client) ListClients(ctx context.Context, page, size int) (interface{}, error) {
	args := m.Called(ctx, page, size)
	return args.Get(0), args.Error(1)
}

func (m *Client) FilterOptions(ctx context.Context) (models.Payload, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(models.Payload)
	return p, args.Error(1)
}

func (m *Client) AutocompleteUserID(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *Client) ClientsByStatus(ctx context.Context, status string, page, size int) (interface{}, error) {
	args := m.Called(ctx, status, page, size)
	return args.Get(0), args.Error(1)
}

func (m *Client) HighRiskClients(ctx context.Context, page, size int) (interface{}, error) {
	args := m.Called(ctx, page, size)
	return args.Get(0), args.Error(1)
}

func (m *Client) Statistics(ctx context.Context) (models.Payload, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(models.Payload)
	return p, args.Error(1)
}

func (m *Client) TotalCount(ctx context.Context) (interface{}, error) {
	args := m.Called(ctx)
	return args.Get(0), args.Error(1)
}

func (m *Client) Aggregates(ctx context.Context) (models.Aggregates, error) {
	args := m.Called(ctx)
	agg, _ := args.Get(0).(models.Aggregates)
	return agg, args.Error(1)
}

func (m *Client) Predict(ctx context.Context, req models.PredictionRequest) (models.Payload, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(models.Payload)
	return p, args.Error(1)
}

func (m *Client) PredictStats(ctx context.Context, req models.PredictionRequest) (models.Payload, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(models.Payload)
	return p, args.Error(1)
}

func (m *Client) UploadBatch(ctx context.Context, fileName string, content io.Reader) (models.Payload, error) {
	args := m.Called(ctx, fileName, content)
	p, _ := args.Get(0).(models.Payload)
	return p, args.Error(1)
}

func (m *Client) BatchStatus(ctx context.Context, jobID string) (models.Payload, error) {
	args := m.Called(ctx, jobID)
	p, _ := args.Get(0).(models.Payload)
	return p, args.Error(1)
}

func (m *Client) Health(ctx context.Context) (models.Payload, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(models.Payload)
	return p, args.Error(1)
}

func (m *Client) ClearCache(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
