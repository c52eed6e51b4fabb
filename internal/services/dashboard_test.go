package services_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"churninsight/dashboard/internal/config"
	"churninsight/dashboard/internal/models"
	"churninsight/dashboard/internal/services"
	"churninsight/dashboard/internal/testdata/mockbackend"
)

type DashboardServiceTestSuite struct {
	suite.Suite
	backend *mockbackend.Client
	cfg     config.DashboardConfig
	dir     string
}

func TestDashboardServiceSuite(t *testing.T) {
	suite.Run(t, new(DashboardServiceTestSuite))
}

func (s *DashboardServiceTestSuite) SetupTest() {
	s.backend = new(mockbackend.Client)
	s.dir = s.T().TempDir()
	s.cfg = config.DashboardConfig{
		UnitPrice:         10,
		MetricsCacheTTL:   time.Hour,
		ClientsSampleSize: 50,
	}
}

func (s *DashboardServiceTestSuite) TearDownTest() {
	s.backend.AssertExpectations(s.T())
}

func (s *DashboardServiceTestSuite) service() services.DashboardService {
	return services.NewDashboardService(s.backend, s.cfg, nil)
}

func (s *DashboardServiceTestSuite) writeFile(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

func backendDown() error {
	return &services.TransportError{Endpoint: "test", Status: 503, Message: "HTTP 503"}
}

func (s *DashboardServiceTestSuite) TestMetrics_CachedUntilInvalidated() {
	s.backend.On("Statistics", mock.Anything).
		Return(models.Payload{"churnRate": 0.2, "clientsWillChurn": 20}, nil).Twice()
	s.backend.On("TotalCount", mock.Anything).Return(100, nil).Twice()

	svc := s.service()
	first := svc.Metrics(context.Background())
	second := svc.Metrics(context.Background())

	s.Equal(first, second)
	s.Equal(100, first.TotalClients)
	s.Equal(20, first.ChurnCount)
	s.Equal(80, first.StayCount)
	s.InDelta(200.0, first.RevenueAtRisk, 1e-9)
	s.Equal("20.0%", first.GlobalChurnRateLabel)
	s.backend.AssertNumberOfCalls(s.T(), "Statistics", 1)

	svc.Invalidate()
	svc.Metrics(context.Background())
	s.backend.AssertNumberOfCalls(s.T(), "Statistics", 2)
}

func (s *DashboardServiceTestSuite) TestMetrics_ZeroTTLNeverCaches() {
	s.cfg.MetricsCacheTTL = 0
	s.backend.On("Statistics", mock.Anything).Return(models.Payload{}, nil).Twice()
	s.backend.On("TotalCount", mock.Anything).Return(0, nil).Twice()

	svc := s.service()
	svc.Metrics(context.Background())
	svc.Metrics(context.Background())
}

func (s *DashboardServiceTestSuite) TestMetrics_FailuresUseStaticFileAndSkipCache() {
	s.cfg.MetricsFallbackFile = s.writeFile("metrics.json", `{
		"totalClients": 100,
		"churnRate": 0.25,
		"featureImportance": [{"name": "skip_rate", "value": 0.4}]
	}`)
	s.backend.On("Statistics", mock.Anything).Return(nil, backendDown()).Twice()
	s.backend.On("TotalCount", mock.Anything).Return(nil, backendDown()).Twice()

	svc := s.service()
	m := svc.Metrics(context.Background())
	svc.Metrics(context.Background())

	s.Equal(100, m.TotalClients)
	s.Equal(25, m.ChurnCount)
	s.Equal(75, m.StayCount)
	s.Equal([]int{75, 25}, m.ChurnDistribution)
	s.Require().Len(m.FeatureImportance, 1)
	s.Equal("skip_rate", m.FeatureImportance[0].Name)
}

func (s *DashboardServiceTestSuite) TestMetrics_LiveStatisticsOverrideStaticFile() {
	s.cfg.MetricsFallbackFile = s.writeFile("metrics.json", `{"totalClients": 100, "churnRate": 0.25}`)
	s.backend.On("Statistics", mock.Anything).Return(models.Payload{"churnRate": 0.5}, nil).Once()
	s.backend.On("TotalCount", mock.Anything).Return(nil, backendDown()).Once()

	m := s.service().Metrics(context.Background())

	s.Equal(100, m.TotalClients)
	s.Equal(50, m.ChurnCount)
}

func (s *DashboardServiceTestSuite) TestHealth_MapsStatus() {
	s.backend.On("Health", mock.Anything).Return(models.Payload{"status": "up"}, nil).Once()
	s.backend.On("Health", mock.Anything).Return(models.Payload{"status": "DOWN"}, nil).Once()
	s.backend.On("Health", mock.Anything).Return(nil, backendDown()).Once()

	svc := s.service()
	s.Equal(models.APIOnline, svc.Health(context.Background()))
	s.Equal(models.APIDegraded, svc.Health(context.Background()))
	s.Equal(models.APIOffline, svc.Health(context.Background()))
}

func (s *DashboardServiceTestSuite) TestSnapshot_CombinesHealthAndMetrics() {
	s.backend.On("Health", mock.Anything).Return(models.Payload{"status": "UP"}, nil).Once()
	s.backend.On("Statistics", mock.Anything).Return(models.Payload{"totalClients": 10}, nil).Once()
	s.backend.On("TotalCount", mock.Anything).Return(map[string]interface{}{"count": 12}, nil).Once()

	snap := s.service().Snapshot(context.Background())

	s.Equal(models.APIOnline, snap.APIStatus)
	s.Require().NotNil(snap.Metrics)
	s.Equal(12, snap.Metrics.TotalClients)
}

func (s *DashboardServiceTestSuite) TestClients_FallsBackToStaticFile() {
	s.cfg.ClientsFallbackFile = s.writeFile("clients.json", `[
		{"user_id": "f-1", "probability": 0.9, "primary_risk_factor": "skip_rate"},
		{"user_id": "f-2", "probability": 0.8, "primary_risk_factor": "skip_rate"},
		{"user_id": "f-3", "probability": 0.6, "primary_risk_factor": "age"},
		{"user_id": "f-4", "probability": 0.1, "primary_risk_factor": "age"}
	]`)
	s.backend.On("ListClients", mock.Anything, 0, 50).Return(map[string]interface{}{"content": []interface{}{}}, nil).Once()
	s.backend.On("ListClients", mock.Anything, 0, 50).Return(nil, backendDown()).Once()

	svc := s.service()
	clients, err := svc.Clients(context.Background())
	s.Require().NoError(err)
	s.Len(clients, 4)
	s.Equal("f-1", clients[0].UserID)

	factors, err := svc.RiskFactors(context.Background())
	s.Require().NoError(err)
	s.Require().Len(factors, 2)
	s.Equal(2, factors[0].Count)
	s.Equal(3, factors[0].TotalAtRisk)
	s.Equal(1, factors[1].Count)
}

func (s *DashboardServiceTestSuite) TestClients_ErrorWithoutFallback() {
	s.backend.On("ListClients", mock.Anything, 0, 50).Return(nil, backendDown()).Once()

	_, err := s.service().Clients(context.Background())

	s.Error(err)
}

func (s *DashboardServiceTestSuite) TestClientsByStatus_ValidatesStatus() {
	_, err := s.service().ClientsByStatus(context.Background(), "MAYBE", 0, 10)
	s.True(services.IsValidation(err))

	s.backend.On("ClientsByStatus", mock.Anything, models.StatusWillStay, 0, 10).
		Return(map[string]interface{}{"content": []interface{}{map[string]interface{}{"userId": "s-1"}}, "totalElements": 1}, nil).Once()

	page, err := s.service().ClientsByStatus(context.Background(), " will_stay ", -2, 0)
	s.Require().NoError(err)
	s.Equal(1, page.TotalElements)
	s.Equal("s-1", page.Content[0].UserID)
}

func (s *DashboardServiceTestSuite) TestClearCache_InvalidatesMetrics() {
	s.backend.On("Statistics", mock.Anything).Return(models.Payload{"churnRate": 0.1}, nil).Twice()
	s.backend.On("TotalCount", mock.Anything).Return(10, nil).Twice()
	s.backend.On("ClearCache", mock.Anything).Return(nil).Once()

	svc := s.service()
	svc.Metrics(context.Background())
	s.Require().NoError(svc.ClearCache(context.Background()))
	svc.Metrics(context.Background())
}

func (s *DashboardServiceTestSuite) TestClearCache_BackendFailureKeepsCache() {
	s.backend.On("Statistics", mock.Anything).Return(models.Payload{"churnRate": 0.1}, nil).Once()
	s.backend.On("TotalCount", mock.Anything).Return(10, nil).Once()
	s.backend.On("ClearCache", mock.Anything).Return(backendDown()).Once()

	svc := s.service()
	svc.Metrics(context.Background())
	s.Error(svc.ClearCache(context.Background()))
	svc.Metrics(context.Background())
}
