package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churninsight/dashboard/internal/models"
)

var defaultMetricsOptions = MetricsOptions{UnitPrice: 12.90, RateScale: RateScaleAuto}

func TestNormalizeMetrics_DerivesCountsFromFractionalRate(t *testing.T) {
	stats := models.Payload{"churnRate": 0.25}
	count := map[string]interface{}{"total": 8000.0}

	m := NormalizeMetrics(stats, count, nil, defaultMetricsOptions)

	assert.Equal(t, 8000, m.TotalClients)
	assert.InDelta(t, 25.0, m.GlobalChurnRate, 1e-9)
	assert.Equal(t, "25.0%", m.GlobalChurnRateLabel)
	assert.Equal(t, 2000, m.ChurnCount)
	assert.Equal(t, 6000, m.StayCount)
	assert.Equal(t, []int{6000, 2000}, m.ChurnDistribution)
	assert.InDelta(t, 25800.0, m.RevenueAtRisk, 1e-6)
}

func TestNormalizeMetrics_PercentRateKeptAsIs(t *testing.T) {
	m := NormalizeMetrics(models.Payload{"globalChurnRate": 25.0}, nil, nil, defaultMetricsOptions)
	assert.Equal(t, "25.0%", m.GlobalChurnRateLabel)
}

func TestNormalizeMetrics_ForcedPercentScale(t *testing.T) {
	opts := MetricsOptions{UnitPrice: 12.90, RateScale: RateScalePercent}
	m := NormalizeMetrics(models.Payload{"churnRate": 0.5}, nil, nil, opts)
	assert.Equal(t, "0.5%", m.GlobalChurnRateLabel)
}

func TestNormalizeMetrics_BareCountAndStatsTotalFallback(t *testing.T) {
	m := NormalizeMetrics(models.Payload{}, 100.0, nil, defaultMetricsOptions)
	assert.Equal(t, 100, m.TotalClients)
	assert.Equal(t, 0, m.ChurnCount)
	assert.Equal(t, 100, m.StayCount)

	m = NormalizeMetrics(models.Payload{"totalCustomers": 50.0}, nil, nil, defaultMetricsOptions)
	assert.Equal(t, 50, m.TotalClients)
}

func TestNormalizeMetrics_ExplicitValuesWin(t *testing.T) {
	stats := models.Payload{
		"totalClients":      100.0,
		"churnRate":         0.1,
		"clientsWillChurn":  12.0,
		"clientsWillStay":   88.0,
		"revenueAtRisk":     5.5,
		"modelAccuracy":     0.91,
		"churnDistribution": []interface{}{80.0, 20.0},
		"featureImportance": []interface{}{
			map[string]interface{}{"name": "num__skip_rate", "value": 0.4},
		},
	}

	m := NormalizeMetrics(stats, nil, nil, defaultMetricsOptions)

	assert.Equal(t, 12, m.ChurnCount)
	assert.Equal(t, 88, m.StayCount)
	assert.InDelta(t, 5.5, m.RevenueAtRisk, 1e-9)
	assert.Equal(t, "91.0%", m.ModelAccuracyLabel)
	assert.Equal(t, []int{80, 20}, m.ChurnDistribution)
	require.Len(t, m.FeatureImportance, 1)
	assert.Equal(t, "Skip rate", m.FeatureImportance[0].Label)
}

func TestNormalizeMetrics_NumericStrings(t *testing.T) {
	stats := models.Payload{"averageChurnProbability": "0.5"}
	count := map[string]interface{}{"count": "10"}

	m := NormalizeMetrics(stats, count, nil, defaultMetricsOptions)

	assert.Equal(t, 10, m.TotalClients)
	assert.Equal(t, 5, m.ChurnCount)
	assert.Equal(t, 5, m.StayCount)
}

func TestNormalizeMetrics_GarbageInputIsTotal(t *testing.T) {
	fallback := []models.FeatureImportance{{Name: "Preço", Label: "Preço", Value: 0.32}}

	var m models.DashboardMetrics
	require.NotPanics(t, func() {
		m = NormalizeMetrics(models.Payload{"churnRate": "abc", "churnDistribution": "nope"}, "x", fallback, defaultMetricsOptions)
	})

	assert.Equal(t, 0, m.TotalClients)
	assert.Equal(t, "0.0%", m.GlobalChurnRateLabel)
	assert.Equal(t, []int{0, 0}, m.ChurnDistribution)
	assert.Equal(t, fallback, m.FeatureImportance)

	m = NormalizeMetrics(nil, nil, nil, defaultMetricsOptions)
	assert.NotNil(t, m.FeatureImportance)
}

func TestNormalizeAggregates(t *testing.T) {
	agg := NormalizeAggregates(models.Payload{
		"total":              120.0,
		"averageProbability": 0.31,
		"total_churners":     40.0,
		"churnRate":          0.33,
		"probabilityBuckets": []interface{}{50.0, 30.0, 25.0, 15.0},
		"riskFactorCounts":   map[string]interface{}{"skip_rate": 12.0},
	})

	assert.Equal(t, 120, agg.Total)
	assert.Equal(t, 40, agg.TotalChurners)
	assert.Equal(t, []int{50, 30, 25, 15}, agg.ProbabilityBuckets)
	assert.Equal(t, map[string]int{"skip_rate": 12}, agg.RiskFactorCounts)
}

func TestAggregatesFromPublicStats(t *testing.T) {
	agg := AggregatesFromPublicStats(models.Payload{
		"total_predictions": 300.0,
		"churn_rate":        0.2,
		"total_churners":    60.0,
	})

	assert.Equal(t, 300, agg.Total)
	assert.InDelta(t, 0.2, agg.AverageProbability, 1e-9)
	assert.InDelta(t, 0.2, agg.ChurnRate, 1e-9)
	assert.Equal(t, 60, agg.TotalChurners)
	assert.Equal(t, []int{0, 0, 0, 0}, agg.ProbabilityBuckets)
	assert.Empty(t, agg.RiskFactorCounts)
}

func TestExtractList_Shapes(t *testing.T) {
	row := map[string]interface{}{"userId": "u1"}

	assert.Len(t, ExtractList([]interface{}{row}), 1)
	assert.Len(t, ExtractList(map[string]interface{}{"content": []interface{}{row, row}}), 2)
	assert.Len(t, ExtractList(map[string]interface{}{"items": []interface{}{row}}), 1)
	assert.Len(t, ExtractList(map[string]interface{}{"data": []interface{}{row}}), 1)
	assert.Empty(t, ExtractList("garbage"))
	assert.Empty(t, ExtractList(nil))
}

func TestNormalizeClient_Aliases(t *testing.T) {
	c := NormalizeClient(models.Payload{
		"clientId":          "C001",
		"churnProbability":  0.82,
		"churn_status":      "WILL_CHURN",
		"subscription_type": "Premium",
		"fator_risco":       "num__ad_intensity",
	})

	assert.Equal(t, "C001", c.UserID)
	assert.InDelta(t, 0.82, c.Probability, 1e-9)
	assert.Equal(t, "WILL_CHURN", c.PredictionLabel)
	assert.Equal(t, "Premium", c.SubscriptionType)
	assert.Equal(t, "num__ad_intensity", c.PrimaryRiskFactor)
	assert.True(t, c.WillChurn())
}

func TestNormalizeClientPage_ExplicitTotals(t *testing.T) {
	raw := map[string]interface{}{
		"content":       []interface{}{map[string]interface{}{"userId": "a"}, map[string]interface{}{"userId": "b"}},
		"totalElements": 25.0,
		"totalPages":    3.0,
		"number":        1.0,
		"size":          10.0,
		"first":         false,
		"last":          false,
	}
	filters := models.DefaultFilters().Merge(models.FilterState{models.FilterPage: 1})

	page := NormalizeClientPage(raw, filters)

	assert.Equal(t, 25, page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.Number)
	assert.False(t, page.First)
	assert.False(t, page.Last)

	pg := ComputePagination(&page, filters)
	assert.Equal(t, 11, pg.StartRecord)
	assert.Equal(t, 20, pg.EndRecord)
	assert.True(t, pg.HasResults)
}

func TestNormalizeClientPage_MissingTotalsUseRecordCount(t *testing.T) {
	raw := []interface{}{
		map[string]interface{}{"userId": "a"},
		map[string]interface{}{"userId": "b"},
		map[string]interface{}{"userId": "c"},
	}

	page := NormalizeClientPage(raw, models.DefaultFilters())

	assert.Equal(t, 3, page.TotalElements)
	assert.Equal(t, 1, page.TotalPages)
	assert.True(t, page.First)
	assert.True(t, page.Last)
}

func TestNormalizeClientPage_NestedPageMetadata(t *testing.T) {
	raw := map[string]interface{}{
		"content": []interface{}{map[string]interface{}{"userId": "a"}},
		"page":    map[string]interface{}{"size": 10.0, "number": 0.0, "totalElements": 42.0, "totalPages": 5.0},
	}

	page := NormalizeClientPage(raw, models.DefaultFilters())

	assert.Equal(t, 42, page.TotalElements)
	assert.Equal(t, 5, page.TotalPages)
	assert.True(t, page.First)
	assert.False(t, page.Last)
}

func TestNormalizeClientPage_SearchStats(t *testing.T) {
	camel := NormalizeClientPage(map[string]interface{}{
		"content": []interface{}{},
		"stats":   map[string]interface{}{"willChurnCount": 12.0, "willStayCount": "30", "avgProbability": 0.42},
	}, models.DefaultFilters())
	assert.Equal(t, models.SearchStats{WillChurnCount: 12, WillStayCount: 30, AvgProbability: 0.42}, camel.Stats)

	snake := NormalizeClientPage(map[string]interface{}{
		"stats": map[string]interface{}{"will_churn_count": 3.0, "will_stay_count": 7.0, "avg_probability": 0.3},
	}, models.DefaultFilters())
	assert.Equal(t, models.SearchStats{WillChurnCount: 3, WillStayCount: 7, AvgProbability: 0.3}, snake.Stats)

	missing := NormalizeClientPage([]interface{}{}, models.DefaultFilters())
	assert.Equal(t, models.SearchStats{}, missing.Stats)

	garbage := NormalizeClientPage(map[string]interface{}{"stats": "n/a"}, models.DefaultFilters())
	assert.Equal(t, models.SearchStats{}, garbage.Stats)
}

func TestComputePagination_UsesClampedPageNumber(t *testing.T) {
	filters := models.DefaultFilters().Merge(models.FilterState{models.FilterPage: 5})
	page := NormalizeClientPage(map[string]interface{}{
		"content":       []interface{}{map[string]interface{}{"userId": "a"}},
		"number":        2.0,
		"totalPages":    3.0,
		"totalElements": 30.0,
	}, filters)

	pg := ComputePagination(&page, filters)

	assert.Equal(t, 2, pg.CurrentPage)
	assert.Equal(t, 21, pg.StartRecord)
	assert.Equal(t, 30, pg.EndRecord)
}

func TestComputePagination_EmptyResult(t *testing.T) {
	page := NormalizeClientPage(map[string]interface{}{"content": []interface{}{}}, models.DefaultFilters())
	pg := ComputePagination(&page, models.DefaultFilters())

	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 0, pg.StartRecord)
	assert.Equal(t, 0, pg.EndRecord)
	assert.True(t, pg.IsEmpty)
	assert.False(t, pg.HasResults)
}

func TestRecordRange(t *testing.T) {
	cases := []struct {
		page, size, total int
		start, end        int
	}{
		{0, 10, 0, 0, 0},
		{0, 10, 25, 1, 10},
		{2, 10, 25, 21, 25},
		{0, 10, 7, 1, 7},
	}
	for _, tc := range cases {
		start, end := RecordRange(tc.page, tc.size, tc.total)
		assert.Equal(t, tc.start, start, "start for %+v", tc)
		assert.Equal(t, tc.end, end, "end for %+v", tc)
	}
}

func TestNormalizeBatchStatus(t *testing.T) {
	status := NormalizeBatchStatus(models.Payload{
		"job_id":    "job-1",
		"status":    "running",
		"processed": "5",
		"total":     10.0,
		"message":   "[]",
	})

	assert.Equal(t, "job-1", status.JobID)
	assert.Equal(t, models.BatchRunning, status.Status)
	require.NotNil(t, status.Processed)
	assert.Equal(t, 5, *status.Processed)
	assert.Nil(t, status.SuccessCount)
	assert.Empty(t, status.Message)
	require.NotNil(t, status.Progress())
	assert.InDelta(t, 50.0, *status.Progress(), 1e-9)
	assert.False(t, status.IsTerminal())

	status = NormalizeBatchStatus(models.Payload{"jobId": "job-2", "state": "COMPLETED"})
	assert.Equal(t, "job-2", status.JobID)
	assert.True(t, status.IsTerminal())
	assert.Nil(t, status.Progress())
}

func TestNormalizePrediction_ClampsAndDerivesLabel(t *testing.T) {
	result := NormalizePrediction(models.Payload{"probability": 1.3})

	assert.InDelta(t, 1.0, result.Probability, 1e-9)
	assert.InDelta(t, 0.5, result.Threshold, 1e-9)
	assert.True(t, result.HighRisk)
	assert.Equal(t, "Likely to churn", result.Label)
	assert.Equal(t, "100.0%", result.ProbabilityLabel)
	assert.Nil(t, result.Diagnosis)
}

func TestNormalizePrediction_DiagnosisAndPlaybook(t *testing.T) {
	result := NormalizePrediction(models.Payload{
		"churn_probability":  0.2,
		"decision_threshold": 0.3,
		"prediction":         "Vai Continuar",
		"ai_diagnosis": map[string]interface{}{
			"primary_risk_factor":      "num__skip_rate",
			"primary_retention_factor": "cat__offline_listening",
		},
		"class_probabilities": map[string]interface{}{"0": 0.8, "1": 0.2},
	})

	assert.False(t, result.HighRisk)
	assert.Equal(t, "Vai Continuar", result.Label)
	require.NotNil(t, result.Diagnosis)
	assert.Equal(t, "Skip rate", result.Diagnosis.RiskFactorLabel)
	assert.Equal(t, "Offline listening", result.Diagnosis.RetentionFactorLabel)
	assert.Equal(t, RetentionAction("Skip rate"), result.Diagnosis.SuggestedAction)
	assert.NotEmpty(t, result.Diagnosis.SuggestedAction)
	assert.InDelta(t, 0.8, result.ClassProbabilities["0"], 1e-9)
}

func TestNormalizePrediction_BackendActionWins(t *testing.T) {
	result := NormalizePrediction(models.Payload{
		"probability":         0.9,
		"primary_risk_factor": "ad_intensity",
		"recommended_action":  "Call the customer",
	})

	require.NotNil(t, result.Diagnosis)
	assert.Equal(t, "Call the customer", result.Diagnosis.SuggestedAction)
	assert.Equal(t, "High loyalty", result.Diagnosis.RetentionFactorLabel)
}

func TestRiskFactorBreakdown(t *testing.T) {
	clients := []models.ClientRecord{
		{UserID: "a", Probability: 0.9, PrimaryRiskFactor: "num__skip_rate"},
		{UserID: "b", Probability: 0.5, PrimaryRiskFactor: "skip_rate"},
		{UserID: "c", Probability: 0.46, PrimaryRiskFactor: "ad_intensity"},
		{UserID: "d", Probability: 0.45, PrimaryRiskFactor: "skip_rate"},
		{UserID: "e", Probability: 0.1, PrimaryRiskFactor: "ad_intensity"},
	}

	shares := RiskFactorBreakdown(clients, 0.45)

	require.Len(t, shares, 2)
	assert.Equal(t, "Skip rate", shares[0].Factor)
	assert.Equal(t, 2, shares[0].Count)
	assert.Equal(t, 3, shares[0].TotalAtRisk)
	assert.Equal(t, "Ad intensity", shares[1].Factor)
	assert.NotEmpty(t, shares[1].Action)
}

func TestFeatureLabel(t *testing.T) {
	assert.Equal(t, "Skip rate", FeatureLabel("num__skip_rate"))
	assert.Equal(t, "Student subscription", FeatureLabel("cat__subscription_type_Student"))
	assert.Equal(t, "unknown feature", FeatureLabel("cat__unknown_feature"))
	assert.Empty(t, FeatureLabel("N/A"))
	assert.Empty(t, FeatureLabel(""))
}
