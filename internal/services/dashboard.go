package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"churninsight/dashboard/internal/config"
	"churninsight/dashboard/internal/models"
)

// DashboardService assembles the overview tab: API health, KPI metrics and
// the client sample behind the risk-factor breakdown.
type DashboardService interface {
	Snapshot(ctx context.Context) models.DashboardSnapshot
	Health(ctx context.Context) string
	Metrics(ctx context.Context) models.DashboardMetrics
	Clients(ctx context.Context) ([]models.ClientRecord, error)
	RiskFactors(ctx context.Context) ([]models.RiskFactorShare, error)
	Aggregates(ctx context.Context) (models.Aggregates, error)
	ClientsByStatus(ctx context.Context, status string, page, size int) (models.ClientPage, error)
	ClearCache(ctx context.Context) error
	Invalidate()
}

type dashboardService struct {
	client BackendClient
	cfg    config.DashboardConfig
	log    *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	cached    *models.DashboardMetrics
	expiresAt time.Time
}

func NewDashboardService(client BackendClient, cfg config.DashboardConfig, log *zap.Logger) DashboardService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.UnitPrice <= 0 {
		cfg.UnitPrice = 12.90
	}
	if cfg.ClientsSampleSize <= 0 {
		cfg.ClientsSampleSize = 2000
	}
	return &dashboardService{
		client: client,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

func (s *dashboardService) Snapshot(ctx context.Context) models.DashboardSnapshot {
	var (
		status  string
		metrics models.DashboardMetrics
		g       errgroup.Group
	)
	g.Go(func() error {
		status = s.Health(ctx)
		return nil
	})
	g.Go(func() error {
		metrics = s.Metrics(ctx)
		return nil
	})
	_ = g.Wait()

	return models.DashboardSnapshot{APIStatus: status, Metrics: &metrics}
}

// Health maps the backend health check onto the header badge.
func (s *dashboardService) Health(ctx context.Context) string {
	health, err := s.client.Health(ctx)
	if err != nil {
		s.log.Debug("health check failed", zap.Error(err))
		return models.APIOffline
	}
	if strings.EqualFold(toText(health["status"]), "UP") {
		return models.APIOnline
	}
	return models.APIDegraded
}

// Metrics fetches statistics, count and the static fallback in parallel.
// Each source may fail on its own; the result is always complete.
func (s *dashboardService) Metrics(ctx context.Context) models.DashboardMetrics {
	if cached, ok := s.fromCache(); ok {
		return cached
	}

	var (
		stats              models.Payload
		count              interface{}
		static             models.Payload
		statsErr, countErr error
		g                  errgroup.Group
	)
	g.Go(func() error {
		stats, statsErr = s.client.Statistics(ctx)
		return nil
	})
	g.Go(func() error {
		count, countErr = s.client.TotalCount(ctx)
		return nil
	})
	g.Go(func() error {
		static = toPayload(s.loadFallback(s.cfg.MetricsFallbackFile))
		return nil
	})
	_ = g.Wait()

	if statsErr != nil {
		s.log.Warn("statistics unavailable", zap.Error(statsErr))
	}
	if countErr != nil {
		s.log.Warn("client count unavailable", zap.Error(countErr))
	}

	merged := models.Payload{}
	for k, v := range static {
		merged[k] = v
	}
	for k, v := range stats {
		merged[k] = v
	}

	metrics := NormalizeMetrics(merged, count, featureList(static["featureImportance"]), MetricsOptions{
		UnitPrice: s.cfg.UnitPrice,
		RateScale: s.cfg.RateScale,
	})

	if statsErr == nil && countErr == nil {
		s.store(metrics)
	}
	return metrics
}

// Clients loads the client sample used by the charts. An empty or failed
// response falls back to the static clients file when one is configured.
func (s *dashboardService) Clients(ctx context.Context) ([]models.ClientRecord, error) {
	raw, err := s.client.ListClients(ctx, 0, s.cfg.ClientsSampleSize)
	if err == nil {
		if clients := NormalizeClients(raw); len(clients) > 0 {
			return clients, nil
		}
		s.log.Warn("client list is empty, trying local fallback")
	}

	if fallback := s.loadFallback(s.cfg.ClientsFallbackFile); fallback != nil {
		return NormalizeClients(fallback), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}
	return []models.ClientRecord{}, nil
}

func (s *dashboardService) RiskFactors(ctx context.Context) ([]models.RiskFactorShare, error) {
	clients, err := s.Clients(ctx)
	if err != nil {
		return nil, err
	}
	threshold := s.cfg.DetailRiskThreshold
	if threshold <= 0 {
		threshold = 0.45
	}
	return RiskFactorBreakdown(clients, threshold), nil
}

func (s *dashboardService) Aggregates(ctx context.Context) (models.Aggregates, error) {
	agg, err := s.client.Aggregates(ctx)
	if err != nil {
		return models.Aggregates{}, fmt.Errorf("failed to load aggregates: %w", err)
	}
	return agg, nil
}

func (s *dashboardService) ClientsByStatus(ctx context.Context, status string, page, size int) (models.ClientPage, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != models.StatusWillChurn && status != models.StatusWillStay {
		return models.ClientPage{}, &ValidationError{Message: fmt.Sprintf("unknown churn status %q", status)}
	}
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = models.DefaultPageSize
	}

	raw, err := s.client.ClientsByStatus(ctx, status, page, size)
	if err != nil {
		return models.ClientPage{}, fmt.Errorf("failed to load clients by status: %w", err)
	}
	return NormalizeClientPage(raw, models.FilterState{models.FilterPage: page, models.FilterSize: size}), nil
}

// ClearCache clears the backend prediction cache and the local metrics.
func (s *dashboardService) ClearCache(ctx context.Context) error {
	if err := s.client.ClearCache(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	s.Invalidate()
	return nil
}

// Invalidate drops the cached metrics.
func (s *dashboardService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}

func (s *dashboardService) fromCache() (models.DashboardMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil || !s.now().Before(s.expiresAt) {
		return models.DashboardMetrics{}, false
	}
	return *s.cached, true
}

func (s *dashboardService) store(m models.DashboardMetrics) {
	if s.cfg.MetricsCacheTTL <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = &m
	s.expiresAt = s.now().Add(s.cfg.MetricsCacheTTL)
}

// loadFallback reads a static JSON file. Missing or malformed files yield nil.
func (s *dashboardService) loadFallback(path string) interface{} {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Debug("fallback file unavailable", zap.String("path", path), zap.Error(err))
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		s.log.Warn("fallback file is not valid JSON", zap.String("path", path), zap.Error(err))
		return nil
	}
	return v
}
