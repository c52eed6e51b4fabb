package models

// FeatureImportance is one bar of the feature importance chart.
type FeatureImportance struct {
	Name  string  `json:"name"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// DashboardMetrics holds the KPI cards and chart series.
type DashboardMetrics struct {
	TotalClients         int                 `json:"total_clients"`
	GlobalChurnRate      float64             `json:"global_churn_rate"`
	GlobalChurnRateLabel string              `json:"global_churn_rate_label"`
	ChurnCount           int                 `json:"churn_count"`
	StayCount            int                 `json:"stay_count"`
	RevenueAtRisk        float64             `json:"revenue_at_risk"`
	ModelAccuracy        float64             `json:"model_accuracy"`
	ModelAccuracyLabel   string              `json:"model_accuracy_label"`
	ChurnDistribution    []int               `json:"churn_distribution"`
	FeatureImportance    []FeatureImportance `json:"feature_importance"`
}

// Aggregates is the /clients/aggregates shape.
type Aggregates struct {
	Total              int            `json:"total"`
	AverageProbability float64        `json:"average_probability"`
	TotalChurners      int            `json:"total_churners"`
	ChurnRate          float64        `json:"churn_rate"`
	ProbabilityBuckets []int          `json:"probability_buckets"`
	RiskFactorCounts   map[string]int `json:"risk_factor_counts"`
}

// API health as shown in the header badge.
const (
	APIOnline   = "online"
	APIDegraded = "degraded"
	APIOffline  = "offline"
)

// RiskFactorShare is one entry of the risk-factor breakdown.
type RiskFactorShare struct {
	Factor      string `json:"factor"`
	Count       int    `json:"count"`
	TotalAtRisk int    `json:"total_at_risk"`
	Action      string `json:"action,omitempty"`
}

// DashboardSnapshot is the overview tab payload.
type DashboardSnapshot struct {
	APIStatus string            `json:"api_status"`
	Metrics   *DashboardMetrics `json:"metrics,omitempty"`
}
