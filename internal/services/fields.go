package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"churninsight/dashboard/internal/models"
)

// field lists the accepted source keys for one canonical value, canonical key
// first, followed by the alternates in priority order.
type field struct {
	Sources []string
	Default float64
}

type fieldTable map[string]field

// Metrics from /clients/statistics.
var statsFields = fieldTable{
	"total":         {Sources: []string{"totalClients", "totalCustomers", "total"}},
	"churnRate":     {Sources: []string{"averageChurnProbability", "globalChurnRate", "churnRate", "churn_rate"}},
	"churnCount":    {Sources: []string{"clientsWillChurn", "churnCount", "highRiskCount", "churn_count"}},
	"stayCount":     {Sources: []string{"clientsWillStay", "stayCount", "stay_count"}},
	"revenueAtRisk": {Sources: []string{"revenueAtRisk", "revenue_at_risk"}},
	"accuracy":      {Sources: []string{"modelAccuracy", "auc", "accuracy"}},
}

// Totals from /clients/count.
var countFields = fieldTable{
	"total": {Sources: []string{"total", "count", "totalClients"}},
}

var pageFields = fieldTable{
	"totalElements": {Sources: []string{"totalElements", "total_elements"}},
	"totalPages":    {Sources: []string{"totalPages", "total_pages"}},
	"number":        {Sources: []string{"number", "page", "pageNumber", "page_number"}},
	"size":          {Sources: []string{"size", "pageSize", "page_size"}},
}

// KPIs under "stats" in a search response.
var searchStatsFields = fieldTable{
	"willChurnCount": {Sources: []string{"willChurnCount", "will_churn_count"}},
	"willStayCount":  {Sources: []string{"willStayCount", "will_stay_count"}},
	"avgProbability": {Sources: []string{"avgProbability", "avg_probability"}},
}

var batchFields = fieldTable{
	"processed":    {Sources: []string{"processed", "processed_count", "processedCount"}},
	"successCount": {Sources: []string{"success_count", "successCount"}},
	"errorCount":   {Sources: []string{"error_count", "errorCount"}},
	"total":        {Sources: []string{"total", "total_records", "totalRecords", "total_rows"}},
}

var predictionFields = fieldTable{
	"probability": {Sources: []string{"probability", "churn_probability", "churnProbability"}},
	"threshold":   {Sources: []string{"decision_threshold", "decisionThreshold"}, Default: 0.5},
}

var aggregateFields = fieldTable{
	"total":              {Sources: []string{"total", "totalClients"}},
	"averageProbability": {Sources: []string{"averageProbability", "average_probability"}},
	"totalChurners":      {Sources: []string{"totalChurners", "total_churners"}},
	"churnRate":          {Sources: []string{"churnRate", "churn_rate"}},
}

// Public statistics mapped onto the aggregates shape.
var publicAggregateFields = fieldTable{
	"total":              {Sources: []string{"total_predictions", "total"}},
	"averageProbability": {Sources: []string{"churn_rate", "averageChurnProbability"}},
	"totalChurners":      {Sources: []string{"total_churners"}},
	"churnRate":          {Sources: []string{"churn_rate"}},
}

// textFields maps a canonical text value to its accepted keys.
type textFields map[string][]string

var clientText = textFields{
	"userId":                 {"userId", "user_id", "clientId", "client_id"},
	"gender":                 {"gender"},
	"country":                {"country"},
	"subscriptionType":       {"subscriptionType", "subscription_type"},
	"deviceType":             {"deviceType", "device_type"},
	"churnStatus":            {"churnStatus", "churn_status"},
	"predictionLabel":        {"predictionLabel", "prediction_label"},
	"recommendedAction":      {"recommendedAction", "recommended_action"},
	"createdAt":              {"createdAt", "created_at"},
	"primaryRiskFactor":      {"primary_risk_factor", "primaryRiskFactor", "main_factor", "fator_risco"},
	"primaryRetentionFactor": {"primary_retention_factor", "primaryRetentionFactor", "secondary_factor"},
}

var clientNumbers = fieldTable{
	"age":         {Sources: []string{"age"}},
	"probability": {Sources: []string{"probability", "churnProbability", "churn_probability", "probabilidade"}},
}

var batchText = textFields{
	"jobId":   {"job_id", "jobId", "id"},
	"status":  {"status", "state"},
	"message": {"message", "detail"},
}

var listKeys = []string{"content", "items", "data"}

// lookup returns the first numeric value found for canonical.
func (t fieldTable) lookup(p models.Payload, canonical string) (float64, bool) {
	f, ok := t[canonical]
	if !ok || p == nil {
		return 0, false
	}
	for _, key := range f.Sources {
		if v, ok := toNumber(p[key]); ok {
			return v, true
		}
	}
	return 0, false
}

// number returns the first numeric value found for canonical, or its default.
func (t fieldTable) number(p models.Payload, canonical string) float64 {
	if v, ok := t.lookup(p, canonical); ok {
		return v
	}
	return t[canonical].Default
}

func (t fieldTable) intPtr(p models.Payload, canonical string) *int {
	v, ok := t.lookup(p, canonical)
	if !ok {
		return nil
	}
	n := int(math.Round(v))
	return &n
}

// text returns the first non-empty string found for canonical.
func (t textFields) text(p models.Payload, canonical string) string {
	if p == nil {
		return ""
	}
	for _, key := range t[canonical] {
		if s := toText(p[key]); s != "" {
			return s
		}
	}
	return ""
}

func toNumber(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toText(v interface{}) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(s)
	}
	if f, ok := toNumber(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

// toBool accepts real booleans, boolean strings and numbers.
func toBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, false
		}
		return parsed, true
	}
	if f, ok := toNumber(v); ok {
		return f != 0, true
	}
	return false, false
}

func toPayload(v interface{}) models.Payload {
	switch p := v.(type) {
	case map[string]interface{}:
		return models.Payload(p)
	case models.Payload:
		return p
	}
	return nil
}
